package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/nixdead/pkg/backup"
	"github.com/l3aro/nixdead/pkg/plan"
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup [root]",
	Short: "Back up the files of a removal phase",
	Long: `Copies the files of one phase of the removal plan into a timestamped
directory under the backup directory, together with a metadata file. The
removal script refuses to run until a backup exists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		cfg, logger, _, err := setup(cmd, root)
		if err != nil {
			return err
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolving root: %w", err)
		}

		p, err := plan.Load(filepath.Join(absRoot, cfg.PlanFile))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("removal plan not found: run `nixdead plan` first")
			}
			return err
		}

		n, _ := cmd.Flags().GetInt("phase")
		ph, ok := p.Phase(n)
		if !ok {
			return fmt.Errorf("plan has no phase %d", n)
		}

		res, err := backup.Create(absRoot, cfg.BackupDir, ph.Files, time.Now())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		for _, f := range res.Metadata.Skipped {
			logger.Warn("file not found, skipped", "file", f)
		}

		fmt.Fprintln(cmd.OutOrStdout(), row("Backup", res.Dir))
		fmt.Fprintln(cmd.OutOrStdout(), row("Files", res.Metadata.TotalCount))
		fmt.Fprintln(cmd.OutOrStdout(), row("Run ID", res.Metadata.RunID))
		return nil
	},
}

func init() {
	backupCmd.Flags().Int("phase", 1, "Removal phase whose files are backed up")
	RootCmd.AddCommand(backupCmd)
}
