package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/server"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/utils"
)

const logFlushFreqFlagName = "log-flush-frequency"

var logFlushFreq = pflag.Duration(logFlushFreqFlagName, 5*time.Second, "Maximum number of seconds between log flushes")

// KlogWriter serves as a bridge between the standard log package and the glog package.
type KlogWriter struct{}

// Write implements the io.Writer interface.
func (writer KlogWriter) Write(data []byte) (n int, err error) {
	klog.InfoDepth(1, string(data))
	return len(data), nil
}

func initLogs(ctx context.Context) {
	log.SetOutput(KlogWriter{})
	log.SetFlags(0)
	go wait.Until(klog.Flush, *logFlushFreq, ctx.Done())
}

func main() {
	ctx := utils.SetupSignalHandler()
	opts := server.NewOptions()

	cmd := &cobra.Command{
		Use:   "switch-tc-offload",
		Short: "Offloads port rate limiting rules to switch hardware policers",
		Long: `switch-tc-offload binds the configured filter blocks to switch ports and offloads their
matchall police rules to the single hardware policer of each port. rules the hardware cannot
express are rejected. the configuration is removed on exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogs(ctx)
			srv, err := server.NewServer(opts)
			if err != nil {
				klog.Exit(err)
			}

			return srv.Run(ctx)
		},
	}
	cmd.Flags().AddFlag(pflag.Lookup(logFlushFreqFlagName))
	opts.AddFlags(cmd.Flags())

	if err := cmd.Execute(); err != nil {
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
