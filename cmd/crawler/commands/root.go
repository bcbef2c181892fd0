// Package commands implements the crawler CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "crawler",
	Short: "Crawl product options into SQL batch files",
	Long: `Crawler visits Olive Young product detail pages and appends their
options to product_options_sql.txt, together with product_sql.txt and
product_info.txt. Every product is written in one file transaction: either
all files change or none do.

Examples:
  # Crawl two products
  crawler crawl "https://www.oliveyoung.co.kr/store/goods/getGoodsDetail.do?goodsNo=A000000233879" ...

  # Crawl a list of URLs, resuming where the last run stopped
  crawler crawl --file urls.txt

  # Check that the batch files execute
  crawler verify`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("output-dir", ".", "directory holding the batch files")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("output.dir", rootCmd.PersistentFlags().Lookup("output-dir"))
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
