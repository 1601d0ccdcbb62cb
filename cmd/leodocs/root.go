package main

import (
	"github.com/leoforge/go-leodocs/internal/config"
	"github.com/leoforge/go-leodocs/pkg/leodocs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys binds command-line flags to configuration keys. Flags only
// override the configuration when they are set.
var flagKeys = map[string]string{
	"log-level": "engine.log_level",
	"templates": "templates.dir",
	"host":      "server.host",
	"port":      "server.port",
	"watch":     "templates.watch",
	"rate":      "server.rate_limit",
	"burst":     "server.burst",
}

// app holds the state shared by all subcommands of one invocation.
type app struct {
	cfgFile string
	viper   *viper.Viper
	config  *config.Config
	logger  *leodocs.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "leodocs",
		Short: "Render Word documents from DOCX templates",
		Long: `leodocs fills DOCX templates with data: placeholders, repeated and
conditional sections, line breaks and embedded images. Templates are plain
Word documents with tags such as {clubName}, {#agendaItems}...{/agendaItems}
and {%logo}.

Configuration is read from .leodocs.yaml (or --config, or LEODOCS_CONFIG_FILE),
then LEODOCS_* environment variables, then flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .leodocs.yaml, can also use LEODOCS_CONFIG_FILE)")
	root.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error, off)")
	root.PersistentFlags().String("templates", "", "template directory")

	root.AddCommand(
		newRenderCmd(a),
		newInspectCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and binds the flags of the running command.
func (a *app) load(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.viper = v
	a.config = cfg
	a.logger = leodocs.NewLogger(cmd.ErrOrStderr(), leodocs.ParseLogLevel(cfg.Engine.LogLevel))
	if used := v.ConfigFileUsed(); used != "" {
		a.logger.WithField("file", used).Debug("Using config file")
	}
	return nil
}

// engine creates an engine over the configured template directory.
func (a *app) engine(opts ...leodocs.Option) *leodocs.Engine {
	base := []leodocs.Option{
		leodocs.WithConfig(a.config.Leodocs()),
		leodocs.WithLogger(a.logger),
	}
	if router := a.config.Router(); router != nil {
		base = append(base, leodocs.WithRouter(router))
	}
	return leodocs.New(leodocs.NewDirStore(a.config.Templates.Dir), append(base, opts...)...)
}
