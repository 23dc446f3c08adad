// OrgDesk console client.
//
// Connects to an OrgDesk server, validates the storage credential and lists
// the files visible to it.
//
// Usage:
//
//	orgdesk-console -server http://host:8080 -auth-token JWT -access-token TOKEN
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/orgdesk/orgdesk/internal/console"
	"github.com/orgdesk/orgdesk/internal/filetable"
	"github.com/orgdesk/orgdesk/internal/logging"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Server URL")
	authToken := flag.String("auth-token", "", "Console auth token (JWT)")
	accessToken := flag.String("access-token", os.Getenv("DRIVE_TOKEN"), "Storage access token")
	prefsPath := flag.String("prefs", defaultPrefsPath(), "Selected-folder preference file")
	filter := flag.String("filter", "all", "Listing filter: all, files, folders")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logging.Init(logging.Config{Level: level, Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	core, err := console.New(console.Config{
		ServerURL:   *server,
		AuthToken:   *authToken,
		AccessToken: *accessToken,
		PrefsPath:   *prefsPath,
		Timeout:     *timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := core.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	core.Table.SetFilter(filetable.Filter(*filter))
	for _, f := range core.Table.Visible() {
		kind := "file"
		if f.IsFolder() {
			kind = "folder"
		}
		fmt.Printf("%-8s %-24s %s\n", kind, f.ID, f.Name)
	}

	if msg := core.Table.FilesErr(); msg != "" {
		fmt.Fprintf(os.Stderr, "Warning: file listing: %s\n", msg)
	}
	if msg := core.Table.FoldersErr(); msg != "" {
		fmt.Fprintf(os.Stderr, "Warning: folder listing: %s\n", msg)
	}
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "orgdesk", "folder")
}
