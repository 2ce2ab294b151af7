package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/objtrans/i18n"
	"github.com/minios-linux/objtrans/locale"
)

// ---------------------------------------------------------------------------
// locales (list the org's translation locales)
// ---------------------------------------------------------------------------

func newLocalesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: i18n.T("List the org's translation locales"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.finish()

			codes, err := s.engine.Locales(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if global.jsonOutput {
				return printJSON(os.Stdout, codes)
			}
			if len(codes) == 0 {
				logInfo(i18n.T("The org has no translation locales"))
				return nil
			}

			fmt.Printf("%-10s %s\n", i18n.T("Code"), i18n.T("Language"))
			fmt.Println(strings.Repeat("─", 36))
			for _, c := range codes {
				fmt.Printf("%-10s %s\n", c, locale.Describe(c))
			}
			return nil
		},
	}
}
