package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"autoapply/internal/applog"
	"autoapply/internal/company"
	"autoapply/internal/config"
	"autoapply/internal/forms"
	"autoapply/internal/mail"
	"autoapply/internal/runner"
)

type applyFlags struct {
	config    string
	companies string
	mode      string
	dryRun    bool
	limit     int
}

var flags applyFlags

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags = applyFlags{}

	rootCmd.Flags().StringVar(&flags.config, "config", "./config/config.yaml", "Path to config.yaml")
	rootCmd.Flags().StringVar(&flags.companies, "companies", "./companies/companies.csv", "Path to companies.csv")
	rootCmd.Flags().StringVarP(&flags.mode, "mode", "m", "both", "Delivery channels to use: email, form or both")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Don't actually send/submit, only log what would happen")
	rootCmd.Flags().IntVarP(&flags.limit, "limit", "l", 0, "Limit the number of companies to process (0 = all)")
}

var rootCmd = &cobra.Command{
	Use:           "autoapply",
	Short:         "Auto-apply to internships: templated emails plus best-effort web form filling",
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func run() error {
	mode, err := runner.ParseMode(flags.mode)
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrInit(flags.config)
	if err != nil {
		return err
	}
	records, err := company.Load(flags.companies)
	if err != nil {
		return err
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	book := applog.NewBook(cfg.Logging, log)
	defer book.Close()

	r := runner.New(cfg,
		mail.NewSender(cfg, log),
		forms.NewSubmitter(cfg, log),
		book,
		log,
	)
	r.Run(records, mode, flags.dryRun, flags.limit)

	fmt.Printf("\n[i] Done. See log: %s\n", cfg.Logging.OutputCSV)
	return nil
}
