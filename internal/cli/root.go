package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	envFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "spendlens",
	Short: "SpendLens - multi-cloud spend analytics",
	Long: `SpendLens pulls billing telemetry from GCP, AWS, and Azure, normalizes
it into one canonical model, and runs trend, anomaly, forecast, and waste
analytics over it. All commands run the pipeline locally against the
configured provider credentials.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Overload(envFile); err != nil {
				return err
			}
		}
		return initApp()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	defer closeApp()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file with credentials and settings")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newAggregateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newCollectCmd())
	rootCmd.AddCommand(newServeCmd())
}

func initViper() {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home + "/.spendlens")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SPENDLENS")
	viper.AutomaticEnv()

	viper.SetDefault("output", "table")
	viper.SetDefault("days", 30)

	_ = viper.ReadInConfig()
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}

// defaultDays is the window length used when --days is not given. The
// config file or SPENDLENS_DAYS can override the built-in 30.
func defaultDays() int {
	if d := viper.GetInt("days"); d > 0 {
		return d
	}
	return 30
}
