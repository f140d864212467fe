package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patmalcolm91/bikesimtools/bikesim/datasync"
)

var (
	listenAddr   string // UDP address to listen on
	listenFormat string // struct format string for decoding
)

// listenCmd prints decoded datagrams, for checking what the driving
// simulator actually sends
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print decoded UDP datagrams arriving at an address",
	Run: func(cmd *cobra.Command, args []string) {
		server, err := datasync.NewServer(listenAddr, listenFormat)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		defer server.Close()
		logrus.Infof("Listening on %s with format %q, Ctrl-C to stop", server.Addr(), listenFormat)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-sigCh:
				return
			case <-ticker.C:
				msgs, err := server.Messages()
				if err != nil {
					logrus.Fatalf("%v", err)
				}
				for _, msg := range msgs {
					fmt.Println(formatMessage(msg))
				}
			}
		}
	},
}

// formatMessage renders one decoded message as a comma-separated line.
func formatMessage(vals []any) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%v", v)
	}
	return out
}

// init sets up CLI flags and subcommands
func init() {
	listenCmd.Flags().StringVar(&listenAddr, "addr", ":9100", "UDP address to listen on")
	listenCmd.Flags().StringVar(&listenFormat, "format", "!d", "Message format string (e.g. !ddd)")

	rootCmd.AddCommand(listenCmd)
}
