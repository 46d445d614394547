package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/analysis/intent"
	"github.com/zhouzirui/truthfinder/backend/internal/app"
	"github.com/zhouzirui/truthfinder/backend/internal/config"
	"github.com/zhouzirui/truthfinder/backend/internal/service/agent"
)

var (
	sessionFlag string
	timeoutFlag time.Duration
	verboseFlag bool
	jsonFlag    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatprobe",
		Short:         "本地调试 TruthFinder 对话链路",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 45*time.Second, "单次请求超时时间")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "输出调试日志")

	chatCmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "发送一条消息并打印回复",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runChat,
	}
	chatCmd.Flags().StringVar(&sessionFlag, "session", "", "会话 ID，留空则自动生成")
	chatCmd.Flags().BoolVar(&jsonFlag, "json", false, "以 JSON 输出完整结果")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "在同一会话中交互式对话",
		Args:  cobra.NoArgs,
		RunE:  runREPL,
	}
	replCmd.Flags().StringVar(&sessionFlag, "session", "", "会话 ID，留空则自动生成")

	routeCmd := &cobra.Command{
		Use:   "route <message>",
		Short: "仅打印意图分类结果，不调用任何后端",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoute(cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}

	root.AddCommand(chatCmd, replCmd, routeCmd)
	return root
}

func buildAgent(ctx context.Context) (*agent.Service, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}

	logger := zap.NewNop()
	if verboseFlag {
		cfg.Log.Level = "debug"
		if logger, err = app.NewLogger(cfg.Log); err != nil {
			return nil, err
		}
	}
	return app.Build(ctx, cfg, logger)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()

	svc, err := buildAgent(ctx)
	if err != nil {
		return err
	}

	result, err := svc.Chat(ctx, strings.Join(args, " "), sessionFlag)
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "[%s] %s\n", result.Intent, result.Response)
	fmt.Fprintf(out, "session: %s\n", result.SessionID)
	return nil
}

func runREPL(cmd *cobra.Command, _ []string) error {
	svc, err := buildAgent(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	sessionID := sessionFlag
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
			result, err := svc.Chat(ctx, line, sessionID)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", describe(err))
			} else {
				sessionID = result.SessionID
				fmt.Fprintf(out, "[%s] %s\n", result.Intent, result.Response)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func printRoute(w io.Writer, message string) error {
	c := intent.Classify(message)
	fmt.Fprintf(w, "decision: %s\n", c.Decision)
	if c.Decision == intent.Memory {
		fmt.Fprintf(w, "memory: %s key=%s value=%q\n", c.Memory.Kind, c.Memory.Key, c.Memory.Value)
	}
	return nil
}

func describe(err error) error {
	code, message, _ := agent.Describe(err)
	return fmt.Errorf("%s: %s", code, message)
}
