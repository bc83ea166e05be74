package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var (
	simulateName   string
	simulateImpact string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一条日历事件并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(simulateName) == "" {
			return errors.New("--name 不能为空")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateName, simulateImpact)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateName, "name", "Simulated event", "事件名称")
	simulateCmd.Flags().StringVar(&simulateImpact, "impact", "HIGH", "事件影响级别 (NONE/LOW/MEDIUM/HIGH)")
}
