package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"daleel/internal/checkout"
	"daleel/internal/ledger"
	"daleel/internal/logger"
	"daleel/pkg/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Work with a business ledger interactively",
	Long: `Open the ledger view of a business and drive it line by line.

Commands:
  add                   show the add-invoice form
  q1 | q2 | q3 | q4     show the invoices of a quarter
  set FIELD VALUE       fill a form field (invoiceNumber, issuerName,
                        receiverName, totalAmount, invoiceDate)
  submit                validate and send the form
  tax Q                 show the service-fee notice for quarter Q
  agree                 accept the fee and hand off to checkout (ends the session)
  cancel                dismiss the notice
  reload                fetch the ledger and tax figures again
  show                  print the overview and the current pane
  quit                  leave the session`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	addBusinessFlags(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("session-cmd")

	ctx, cancel := createContext(0, log)
	defer cancel()

	out := cmd.OutOrStdout()
	view, err := mountLedger(ctx, cmd, checkout.NewJSONWriter(out))
	if err != nil {
		return err
	}
	defer view.Unmount()

	if state, err := waitLoaded(ctx, view); err == nil {
		renderOverview(out, state)
		renderPane(out, state)
	}

	return runSessionLoop(ctx, cmd.InOrStdin(), out, view, promptEnabled(cmd.InOrStdin()))
}

func promptEnabled(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// runSessionLoop applies one command per input line until quit, EOF or agreement.
func runSessionLoop(ctx context.Context, in io.Reader, out io.Writer, view *ledger.View, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(out, "daleel> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		done, err := sessionCommand(ctx, out, view, line)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
		if done {
			return nil
		}
	}
}

func sessionCommand(ctx context.Context, out io.Writer, view *ledger.View, line string) (bool, error) {
	fields := strings.Fields(line)
	name, rest := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		return true, nil

	case "add", "q1", "q2", "q3", "q4":
		pane, err := ledger.ParsePane(name)
		if err != nil {
			return false, err
		}
		if err := view.SelectPane(pane); err != nil {
			return false, err
		}
		renderCurrent(out, view)

	case "set":
		if len(rest) < 1 {
			return false, fmt.Errorf("usage: set FIELD VALUE")
		}
		value := strings.Join(rest[1:], " ")
		if err := view.SetField(rest[0], value); err != nil {
			return false, err
		}

	case "submit":
		if err := view.Submit(); err != nil {
			return false, err
		}
		if err := view.WaitIdle(ctx); err != nil {
			return false, err
		}
		s, _ := view.Snapshot()
		renderMessages(out, s)

	case "tax":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: tax Q")
		}
		q, err := models.ParseQuarter(rest[0])
		if err != nil {
			return false, err
		}
		if err := view.RequestTaxDisclosure(q); err != nil {
			return false, err
		}
		s, _ := view.Snapshot()
		renderDisclosure(out, s)
		fmt.Fprintln(out, `Type "agree" to continue to checkout or "cancel".`)

	case "agree":
		if view.Agree() {
			return true, nil
		}
		return false, fmt.Errorf(`no service-fee notice shown; use "tax Q" first`)

	case "cancel":
		return false, view.CancelDisclosure()

	case "reload":
		if err := view.Reload(); err != nil {
			return false, err
		}
		if err := view.WaitIdle(ctx); err != nil {
			return false, err
		}
		renderCurrent(out, view)

	case "show":
		renderCurrent(out, view)

	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

func renderCurrent(out io.Writer, view *ledger.View) {
	s, _ := view.Snapshot()
	renderOverview(out, s)
	renderPane(out, s)
}
