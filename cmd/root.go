package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/chatkeep/internal"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	storePath string
	version   string = "dev"
	commit    string = "unknown"
	date      string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatkeep",
	Short: "Local store for LLM chat conversations",
	Long: `chatkeep owns the conversation data layer of a chat client: an ordered
list of messages per conversation, each message a list of typed content
fragments, persisted to a versioned local document store.

Features:
  • List and view conversations with fragment-level detail
  • Export in multiple formats (JSON, JSONL, Markdown, YAML)
  • Import portable conversation records, legacy shapes included
  • Branch a conversation at any message
  • Garbage-collect unreferenced binary attachments

Quick Start:
  chatkeep list                     # List all conversations
  chatkeep show <conversation-id>   # View a conversation
  chatkeep export --format md       # Export as Markdown`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Custom store location (path to the chatkeep data directory)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// resolveStoreDir picks the data directory: --store flag, CHATKEEP_STORE
// env, then ~/.chatkeep.
func resolveStoreDir() (string, error) {
	if storePath != "" {
		return storePath, nil
	}
	if env := os.Getenv("CHATKEEP_STORE"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatkeep"), nil
}

// storeEnv bundles everything a command needs to work on the store.
type storeEnv struct {
	store *internal.Store
	docs  *internal.DocStore
	blobs *internal.SQLiteBlobStore
	adapt *internal.PersistenceAdapter
}

// openStoreEnv opens the document and blob stores, rehydrates the
// conversation store and attaches the persistence adapter.
func openStoreEnv() (*storeEnv, error) {
	dir, err := resolveStoreDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	docs, err := internal.OpenDocStore(filepath.Join(dir, "chats.db"))
	if err != nil {
		return nil, err
	}
	blobs, err := internal.OpenBlobStore(filepath.Join(dir, "blobs.db"))
	if err != nil {
		docs.Close()
		return nil, err
	}

	store, err := internal.LoadStore(docs, blobs)
	if err != nil {
		docs.Close()
		blobs.Close()
		return nil, err
	}

	adapt := internal.NewPersistenceAdapter(docs)
	adapt.Attach(store)

	return &storeEnv{store: store, docs: docs, blobs: blobs, adapt: adapt}, nil
}

// close flushes pending writes and releases the databases.
func (e *storeEnv) close() {
	e.adapt.Close()
	_ = e.blobs.Close()
	_ = e.docs.Close()
}

// findConversation resolves an id or unambiguous id prefix.
func (e *storeEnv) findConversation(idOrPrefix string) (*internal.Conversation, error) {
	var match *internal.Conversation
	for _, c := range e.store.Conversations() {
		if c.ID == idOrPrefix {
			return c, nil
		}
		if strings.HasPrefix(c.ID, idOrPrefix) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous conversation id prefix: %s", idOrPrefix)
			}
			match = c
		}
	}
	if match == nil {
		return nil, fmt.Errorf("conversation not found: %s", idOrPrefix)
	}
	return match, nil
}
