package cmd

import (
	"context"
	"fmt"
	"log"

	"autodj/config"
	"autodj/core/audio"
	"autodj/logger"

	"github.com/spf13/cobra"
)

var mixOutput string

// 离线混音：不起服务，直接把三个本地文件混成一条
var mixCmd = &cobra.Command{
	Use:   "mix <track1> <track2> <track3>",
	Short: "离线混音三个本地音频文件",
	Long:  `不启动服务器，直接对三个本地音频文件做节拍对齐混音并输出MP3。`,
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		logger.InitLogger(logger.Config{
			Level: logger.LogLevel(cfg.LogLevel),
		})

		proc := audio.NewFFmpegProcessor(cfg.FFmpegPath)
		mixer := audio.NewMixer(proc, audio.MixOptions{
			CrossfadeMs:    cfg.CrossfadeMs,
			TempoWindowSec: cfg.TempoWindowSec,
			MaxTempoShift:  cfg.MaxTempoShift,
			SfxPath:        cfg.DJSfxPath,
		})

		result, err := mixer.MixThree(context.Background(), args[0], args[1], args[2], mixOutput)
		if err != nil {
			log.Fatalf("混音失败: %v", err)
		}

		fmt.Printf("混音完成: %s (%.1fs, 过渡点 %.1fs / %.1fs)\n",
			result.OutputPath, result.Duration, result.TransitionA, result.TransitionB)
	},
}

func init() {
	mixCmd.Flags().StringVarP(&mixOutput, "output", "o", "final_mix.mp3", "输出文件路径")
	rootCmd.AddCommand(mixCmd)
}
