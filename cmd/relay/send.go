package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zhubert/relay-core/chat"
)

func newSendCmd() *cobra.Command {
	var sessionID, model, mode string
	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send a message and stream the assistant's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.Model
			}
			if mode == "" {
				mode = cfg.Mode
			}
			if sessionID == "" {
				sessionID = uuid.New().String()
			}

			ctrl := chat.NewController(sessionID, chat.NewClient(cfg.Server))
			ctrl.SetHistoryLimit(cfg.HistoryMaxLines)
			ctrl.SetModel(model)
			ctrl.SetMode(mode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// A second interrupt kills the process; the first just stops
			// the in-flight turn.
			go func() {
				<-ctx.Done()
				ctrl.Cancel()
			}()

			return streamTurn(ctx, cmd, ctrl, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default: a new session)")
	cmd.Flags().StringVar(&model, "model", "", "model to use (overrides config)")
	cmd.Flags().StringVar(&mode, "mode", "", "permission mode (overrides config)")
	return cmd
}

func streamTurn(ctx context.Context, cmd *cobra.Command, ctrl *chat.Controller, content string) error {
	updates, err := ctrl.Send(context.Background(), content)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	stdin := bufio.NewReader(cmd.InOrStdin())

	for update := range updates {
		switch {
		case update.Done:
			fmt.Fprintln(out)
		case update.Type == chat.UpdateText:
			fmt.Fprint(out, update.Text)
		case update.Type == chat.UpdateToolUse:
			fmt.Fprintf(out, "\n[tool: %s]\n", update.Invocation.Name)
		case update.Type == chat.UpdateStatus:
			fmt.Fprintf(cmd.ErrOrStderr(), "-- %s\n", update.Text)
		case update.Type == chat.UpdatePermission:
			if err := promptPermission(ctx, ctrl, update.Permission, cmd, stdin); err != nil {
				return err
			}
		}
	}
	return nil
}

func promptPermission(ctx context.Context, ctrl *chat.Controller, req *chat.PermissionRequest, cmd *cobra.Command, stdin *bufio.Reader) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "\nPermission requested: %s %s\nAllow? [y]es / [s]ession / [N]o: ",
		req.Tool, req.Description)

	line, err := stdin.ReadString('\n')
	if err != nil {
		line = ""
	}

	choice := chat.ChoiceDeny
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		choice = chat.ChoiceAllow
	case "s", "session":
		choice = chat.ChoiceAllowForSession
	}
	return ctrl.ResolvePermission(ctx, choice)
}
