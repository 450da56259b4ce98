package plan

import (
	"fmt"
	"os"
	"strings"
)

// ShellQuote single-quotes s for a POSIX shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Script renders the removal script for phase 1. The script refuses to run
// without the backup directory, deletes only phase-1 files, then runs the
// verification command and reports the outcome.
func (p *Plan) Script() string {
	var files []string
	if ph, ok := p.Phase(1); ok {
		files = ph.Files
	}

	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	fmt.Fprintf(&b, "# Generated by nixdead at %s.\n", p.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	b.WriteString("# Removes phase 1 (low risk) candidates, then verifies the build.\n")
	b.WriteString("set -euo pipefail\n\n")

	fmt.Fprintf(&b, "cd %s\n\n", ShellQuote(p.Repository))

	fmt.Fprintf(&b, "BACKUP_DIR=%s\n", ShellQuote(p.BackupDir))
	b.WriteString("if [ ! -d \"$BACKUP_DIR\" ]; then\n")
	b.WriteString("  echo \"Backup directory $BACKUP_DIR not found. Run 'nixdead backup' first.\" >&2\n")
	b.WriteString("  exit 1\n")
	b.WriteString("fi\n\n")

	b.WriteString("removed=0\n")
	b.WriteString("missing=0\n\n")
	b.WriteString("echo \"Phase 1: safe removals (low risk)\"\n")
	for _, f := range files {
		q := ShellQuote(f)
		fmt.Fprintf(&b, "if [ -f %s ]; then\n", q)
		fmt.Fprintf(&b, "  echo %s\n", ShellQuote("  removing: "+f))
		fmt.Fprintf(&b, "  rm -- %s\n", q)
		b.WriteString("  removed=$((removed + 1))\n")
		b.WriteString("else\n")
		fmt.Fprintf(&b, "  echo %s\n", ShellQuote("  not found: "+f))
		b.WriteString("  missing=$((missing + 1))\n")
		b.WriteString("fi\n")
	}
	b.WriteString("echo \"Phase 1 completed: $removed removed, $missing not found\"\n\n")

	b.WriteString("echo \"Verifying build...\"\n")
	fmt.Fprintf(&b, "if %s; then\n", p.VerifyCommand)
	b.WriteString("  echo \"Build verification passed\"\n")
	b.WriteString("else\n")
	b.WriteString("  echo \"Build verification failed - restore files from $BACKUP_DIR\" >&2\n")
	b.WriteString("  exit 1\n")
	b.WriteString("fi\n")

	return b.String()
}

// WriteScript renders, verifies and writes the removal script with mode
// 0755. Nothing is written when verification fails.
func (p *Plan) WriteScript(path string) error {
	script := p.Script()

	var allowed []string
	if ph, ok := p.Phase(1); ok {
		allowed = ph.Files
	}
	if err := Verify([]byte(script), allowed, p.VerifyCommand); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		return fmt.Errorf("failed to write removal script: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("failed to chmod removal script: %w", err)
	}
	return nil
}
