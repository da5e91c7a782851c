package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dodgybadger/assistantmd/pkg/buffer"
	"github.com/dodgybadger/assistantmd/pkg/chatexecutor"
	"github.com/dodgybadger/assistantmd/pkg/console"
	"github.com/dodgybadger/assistantmd/pkg/pattern"
	"github.com/dodgybadger/assistantmd/pkg/vault"
)

func newChatCommand() *cobra.Command {
	var vaultName, sessionID, modelAlias, templateName string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat REPL against a vault's context template",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if vaultName == "" {
				vaults, err := vault.DiscoverVaults(a.roots.DataRoot)
				if err != nil {
					return err
				}
				if len(vaults) == 0 {
					return fmt.Errorf("no vaults found under %s", a.roots.DataRoot)
				}
				vaultName = vaults[0].Name
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			if modelAlias == "" {
				modelAlias = defaultModelAlias(a.settings)
			}

			weekStart, err := pattern.ParseWeekStartDay(a.settings.WeekStartDay)
			if err != nil {
				weekStart = time.Monday
			}

			buffers := buffer.New()
			cmd.Println(console.FormatInfoMessage(fmt.Sprintf("chatting in vault %q as session %s (ctrl-d to exit)", vaultName, sessionID)))

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					break
				}
				input := scanner.Text()
				if input == "" {
					continue
				}

				reply, err := a.chat.Turn(cmd.Context(), chatexecutor.TurnRequest{
					SessionID:     sessionID,
					Vault:         vaultName,
					ModelAlias:    modelAlias,
					TemplateName:  templateName,
					UserInput:     input,
					ReferenceTime: time.Now(),
					WeekStartDay:  weekStart,
					Buffers:       buffers,
				})
				if err != nil {
					cmd.Println(console.FormatErrorMessage(err.Error()))
					continue
				}
				cmd.Println(reply.Reply)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&vaultName, "vault", "", "vault to chat against (defaults to the first discovered vault)")
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session id (defaults to a fresh one)")
	cmd.Flags().StringVar(&modelAlias, "model", "", "model alias for a brand-new session (defaults to the alphabetically first configured alias)")
	cmd.Flags().StringVar(&templateName, "template", "", "context template name for a brand-new session")
	return cmd
}
