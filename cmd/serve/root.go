package serve

import (
	cmdUtil "github.com/jkrings/larch/cmd/util"
	"github.com/jkrings/larch/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = server.DefaultConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the larch server",
		Long:    `Start the larch server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is LARCH_<flag> (e.g. LARCH_IDLE_TIMEOUT_MS=10000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitEnvConfig)

	defaults := server.DefaultConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The TCP address the server listens on"))

	key = "reuse-port"
	ServeCmd.PersistentFlags().Bool(key, defaults.ReusePort, cmdUtil.WrapString("Bind the listener with SO_REUSEPORT so several instances can share the address"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, defaults.TCPNoDelay, cmdUtil.WrapString("Whether to disable Nagle's algorithm (TCP_NODELAY) on accepted connections"))

	key = "idle-timeout-ms"
	ServeCmd.PersistentFlags().Int64(key, defaults.IdleTimeoutMs, cmdUtil.WrapString("How long a connection without any traffic survives before the server closes it (in milliseconds)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, defaults.Workers, cmdUtil.WrapString("Number of background workers that tear down large containers off the event loop"))

	key = "large-container"
	ServeCmd.PersistentFlags().Int(key, defaults.LargeContainer, cmdUtil.WrapString("Member count above which a deleted sorted set is destroyed by the worker pool instead of inline"))

	key = "max-expire-works"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxExpireWorks, cmdUtil.WrapString("Upper bound of TTL expirations processed per event-loop iteration"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.MetricsEndpoint, cmdUtil.WrapString("The address on which Prometheus metrics are served (empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.ReusePort = viper.GetBool("reuse-port")
	serveCmdConfig.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.IdleTimeoutMs = viper.GetInt64("idle-timeout-ms")
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.LargeContainer = viper.GetInt("large-container")
	serveCmdConfig.MaxExpireWorks = viper.GetInt("max-expire-works")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the larch server
func run(_ *cobra.Command, _ []string) error {
	server.InitLoggers(serveCmdConfig)
	logger := server.GetLogger("server")

	logger.Infof("created larch server")
	logger.Infof(serveCmdConfig.String())

	loop, err := server.NewLoop(serveCmdConfig)
	if err != nil {
		return err
	}

	if serveCmdConfig.MetricsEndpoint != "" {
		go server.ServeMetrics(serveCmdConfig.MetricsEndpoint, loop.Pool())
	}

	return loop.Run()
}
