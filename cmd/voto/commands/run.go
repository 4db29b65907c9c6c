package commands

import (
	"os"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leandrolasalle/voto-apresentacao/src/config"
	"github.com/leandrolasalle/voto-apresentacao/src/voto"
)

//NewRunCmd returns the command that starts a voting node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runVoto,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runVoto(cmd *cobra.Command, args []string) error {
	engine := voto.NewVoto(_config)

	if err := engine.Init(); err != nil {
		_config.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	defer engine.Shutdown()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Base path for per-level log files")
	cmd.Flags().String("moniker", _config.Moniker, "Optional name")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.DatabaseDir, "Database directory")

	// Remote store
	cmd.Flags().String("database-url", _config.DatabaseURL, "Postgres connection string; empty runs offline")

	// Simulation
	cmd.Flags().Duration("mining-delay", _config.MiningDelay, "Simulated mining window")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	if _config.LogFile != "" {
		_config.WithLogger(newFileLogger(_config.LogFile, _config.LogLevel))
	}

	logFields := logrus.Fields{
		"DataDir":      _config.DataDir,
		"ServiceAddr":  _config.ServiceAddr,
		"Store":        _config.Store,
		"LogLevel":     _config.LogLevel,
		"Moniker":      _config.Moniker,
		"MiningDelay":  _config.MiningDelay,
		"Online":       _config.DatabaseURL != "",
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/voto.toml (.json, .yaml also work)
	viper.SetConfigName("voto")          // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

// newFileLogger builds a logger with per-level file hooks next to the stderr
// output.
func newFileLogger(base string, level string) *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(level)

	pathMap := lfshook.PathMap{}

	infoPath := base + "_info.log"
	if _, err := os.OpenFile(infoPath, os.O_CREATE|os.O_WRONLY, 0666); err != nil {
		logger.Infof("Failed to open %s, using default stderr", infoPath)
	} else {
		pathMap[logrus.InfoLevel] = infoPath
	}

	debugPath := base + "_debug.log"
	if _, err := os.OpenFile(debugPath, os.O_CREATE|os.O_WRONLY, 0666); err != nil {
		logger.Infof("Failed to open %s, using default stderr", debugPath)
	} else {
		pathMap[logrus.DebugLevel] = debugPath
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return logger
}
