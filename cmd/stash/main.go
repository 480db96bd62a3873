package main

import (
	"fmt"
	"os"
	"time"

	"stash-go/internal/app"
	"stash-go/internal/config"
	"stash-go/internal/secrets"
	"stash-go/internal/stash"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pw), nil
}

// loadConfig reads the config from the default location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App, prompting for a passphrase
// when the key files are protected. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Upload", "Sign").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	passphrase := ""
	protected, err := secrets.IsProtected(cfg.Keys.Dir, cfg.Keys.SecretsName)
	if err != nil {
		return nil, fmt.Errorf("inspecting key files: %w", err)
	}
	if protected {
		if passphrase, err = promptPassphrase("Key passphrase: "); err != nil {
			return nil, err
		}
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation, passphrase)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// loadEntity reads an entity JSON file written by the upload command.
func loadEntity(path string) (*stash.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entity file: %w", err)
	}
	return app.UnmarshalEntity(data)
}

var rootCmd = &cobra.Command{
	Use:   "stash",
	Short: "File ingestion and signed-URL storage tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Storage:  %s (bucket %s)\n", cfg.Storage.Type, cfg.Storage.Bucket)
		fmt.Printf("URL Base: %s\n", cfg.URLs.Base)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage key material",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate secret and signing keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		protect, _ := cmd.Flags().GetBool("protect")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase := ""
		if protect {
			passphrase, err = promptPassphrase("New key passphrase: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if passphrase != confirm {
				return fmt.Errorf("passphrases do not match")
			}
		}

		if err := secrets.Init(cfg.Keys.Dir, cfg.Keys.SecretsName, passphrase); err != nil {
			return fmt.Errorf("initializing secret keys: %w", err)
		}
		if err := secrets.Init(cfg.Keys.Dir, cfg.Keys.SigningName, passphrase); err != nil {
			return fmt.Errorf("initializing signing keys: %w", err)
		}

		fmt.Printf("Key material created in %s\n", cfg.Keys.Dir)
		return nil
	},
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Add a new secret key version",
	Long: "Add a new secret key version. Older versions stay on disk so\n" +
		"previously encrypted files remain decryptable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase := ""
		protected, err := secrets.IsProtected(cfg.Keys.Dir, cfg.Keys.SecretsName)
		if err != nil {
			return fmt.Errorf("inspecting key files: %w", err)
		}
		if protected {
			if passphrase, err = promptPassphrase("Key passphrase: "); err != nil {
				return err
			}
		}

		version, err := secrets.Rotate(cfg.Keys.Dir, cfg.Keys.SecretsName, passphrase)
		if err != nil {
			return fmt.Errorf("rotating secret keys: %w", err)
		}

		fmt.Printf("Secret key rotated to version %d\n", version)
		return nil
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload PATH",
	Short: "Ingest a file into storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compress, _ := cmd.Flags().GetBool("compress")
		encrypt, _ := cmd.Flags().GetBool("encrypt")
		caption, _ := cmd.Flags().GetString("caption")
		public, _ := cmd.Flags().GetBool("public")
		entityOut, _ := cmd.Flags().GetString("entity")

		a, err := newApp(cmd, "Upload")
		if err != nil {
			return err
		}
		defer a.Close()

		entity, err := a.UploadFile(cmd.Context(), args[0], stash.UploadOptions{
			Compress: compress,
			Encrypt:  encrypt,
			Caption:  caption,
			Public:   public,
		})
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		data, err := app.MarshalEntity(entity)
		if err != nil {
			return fmt.Errorf("encoding entity: %w", err)
		}
		if entityOut != "" {
			if err := os.WriteFile(entityOut, data, 0600); err != nil {
				return fmt.Errorf("writing entity file: %w", err)
			}
			fmt.Printf("Uploaded %s, entity written to %s\n", entity.FileID, entityOut)
			return nil
		}
		fmt.Println(string(data))
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download ENTITY_FILE",
	Short: "Download a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		entity, err := loadEntity(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "Download")
		if err != nil {
			return err
		}
		defer a.Close()

		written, err := a.DownloadFile(cmd.Context(), entity, out)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		fmt.Printf("Downloaded to %s\n", written)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ENTITY_FILE",
	Short: "Remove a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity, err := loadEntity(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.DeleteFile(cmd.Context(), entity)
		if err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}

		if removed {
			fmt.Printf("Removed %s\n", entity.FileID)
		} else {
			fmt.Printf("Nothing removed for %s\n", entity.FileID)
		}
		return nil
	},
}

// sign command
var signCmd = &cobra.Command{
	Use:   "sign ENTITY_FILE",
	Short: "Issue signed URLs for a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttlSeconds, _ := cmd.Flags().GetInt64("ttl")
		base, _ := cmd.Flags().GetString("base")

		entity, err := loadEntity(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "Sign")
		if err != nil {
			return err
		}
		defer a.Close()

		urls, err := a.SignFile(entity, base, time.Duration(ttlSeconds)*time.Second)
		if err != nil {
			return fmt.Errorf("signing failed: %w", err)
		}

		fmt.Printf("Download: %s\n", urls.Download)
		fmt.Printf("View:     %s\n", urls.View)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify ENTITY_FILE TOKEN",
	Short: "Check a signed URL token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity, err := loadEntity(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.VerifyFile(entity, args[1]); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		fmt.Println("Signature valid")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)
	keysInitCmd.Flags().Bool("protect", false, "Protect key files with a passphrase")
	keysCmd.AddCommand(keysRotateCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().Bool("compress", false, "Gzip the content at rest")
	uploadCmd.Flags().Bool("encrypt", false, "Encrypt the content at rest")
	uploadCmd.Flags().String("caption", "", "Caption stored on the entity")
	uploadCmd.Flags().Bool("public", false, "Mark the entity public")
	uploadCmd.Flags().String("entity", "", "Write the entity JSON to this file instead of stdout")
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().String("out", "", "Output path (default: original filename)")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().Int64("ttl", 0, "Link lifetime in seconds (default: configured TTL)")
	signCmd.Flags().String("base", "", "Base URL (default: configured base)")
	rootCmd.AddCommand(verifyCmd)
}
