// Command logimind は物流監視ダッシュボードのターミナルクライアントを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitoshi/logimind/internal/app"
)

// version はビルド時に -ldflags で埋め込む。
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "logimind",
	Short: "LogiMind — console de supervision logistique",
	Long: `LogiMind affiche dans le terminal les KPI, alertes, prévisions et
rapports IA de la plateforme logistique. La configuration se fait par
variables d'environnement (IDENTITY_URL, IDENTITY_ANON_KEY, BACKEND_URL).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Affiche la version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("logimind %s\n", version)
	},
}

func main() {
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
