package cmd

import (
	"autodj/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动AutoDJ服务器",
	Long:  `启动AutoDJ点歌混音系统的HTTP服务器和会话循环`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
