// StudyFlow CLI — инструмент командной строки для работы
// с планировщиком повторений через HTTP API.
//
// Использование:
//
//	studyflow [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	seed      Ручная вставка due item
//	window    Что due в окне времени
//	status    Состояние сервиса
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/studyflow-scheduler/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "studyflow",
		Short:         "StudyFlow CLI — review scheduler tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:3004", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewSeedCmd(clientFn, outputFn),
		cli.NewWindowCmd(clientFn, outputFn),
		cli.NewStatusCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
