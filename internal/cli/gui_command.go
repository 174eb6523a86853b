package cli

import (
	"github.com/spf13/cobra"

	"github.com/lohnkonto/lohnkonto-client/internal/gui"
)

// newGUICmd creates the 'gui' command.
func newGUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop window",
		Long: `Open the drag-and-drop window. Global flags such as --api-url and the
proxy settings apply to the window as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("")
			if err != nil {
				return err
			}
			return gui.Launch(cfg)
		},
	}
}
