package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gauss-project/powerpay"
	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/keystore"
	filekeystore "github.com/gauss-project/powerpay/pkg/keystore/file"
	memkeystore "github.com/gauss-project/powerpay/pkg/keystore/mem"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/node"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errPasswordMismatch = errors.New("passwords do not match")

// operatorKeyName is the keystore name of the node operator wallet.
const operatorKeyName = "operator"

func (c *command) initStartCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a PowerPay node",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			v := strings.ToLower(c.config.GetString(optionNameVerbosity))
			logger, err := newLogger(cmd, v)
			if err != nil {
				return fmt.Errorf("new logger: %v", err)
			}

			operator, ks, err := c.configureOperator(cmd, logger)
			if err != nil {
				return err
			}

			logger.Infof("version: %v", powerpay.Version)
			logger.Infof("operator wallet: %s", operator)

			debugAPIAddr := c.config.GetString(optionNameDebugAPIAddr)
			if !c.config.GetBool(optionNameDebugAPIEnable) {
				debugAPIAddr = ""
			}

			b, err := node.NewNode(operator, ks, logger, node.Options{
				DataDir:                  c.config.GetString(optionNameDataDir),
				DBOpenFilesLimit:         c.config.GetUint64(optionNameDBOpenFilesLimit),
				DBBlockCacheCapacity:     c.config.GetUint64(optionNameDBBlockCacheCapacity),
				DBWriteBufferSize:        c.config.GetUint64(optionNameDBWriteBufferSize),
				DBDisableSeeksCompaction: c.config.GetBool(optionNameDBDisableSeeksCompaction),
				APIAddr:                  c.config.GetString(optionNameAPIAddr),
				DebugAPIAddr:             debugAPIAddr,
				CORSAllowedOrigins:       c.config.GetStringSlice(optionCORSAllowedOrigins),
				Logger:                   logger,
				DevMode:                  c.config.GetBool(optionNameDevMode),
				FaucetAmount:             c.config.GetUint64(optionNameFaucetAmount),
				FaucetInterval:           c.config.GetDuration(optionNameFaucetInterval),
				RentPerByte:              c.config.GetUint64(optionNameRentPerByte),
				RentExemptionMultiplier:  c.config.GetUint64(optionNameRentExemptionMultiplier),
			})
			if err != nil {
				return err
			}

			// Wait for termination or interrupt signals.
			// We want to clean up things at the end.
			interruptChannel := make(chan os.Signal, 1)
			signal.Notify(interruptChannel, syscall.SIGINT, syscall.SIGTERM)

			// Block main goroutine until it is interrupted
			sig := <-interruptChannel

			logger.Debugf("received signal: %v", sig)
			logger.Info("shutting down")

			done := make(chan struct{})
			go func() {
				defer close(done)

				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()

				if err := b.Shutdown(ctx); err != nil {
					logger.Errorf("shutdown: %v", err)
				}
			}()

			// If shutdown function is blocking too long,
			// allow process termination by receiving another signal.
			select {
			case sig := <-interruptChannel:
				logger.Debugf("received signal: %v", sig)
			case <-done:
			}

			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setAllFlags(cmd)
	c.root.AddCommand(cmd)
	return nil
}

// configureOperator unlocks, or creates on first use, the operator wallet
// key. Without a data directory the key lives in memory only.
func (c *command) configureOperator(cmd *cobra.Command, logger logging.Logger) (operator identity.Identity, ks keystore.Service, err error) {
	if dataDir := c.config.GetString(optionNameDataDir); dataDir == "" {
		ks = memkeystore.New()
		logger.Warning("data directory not provided, keys are not persisted")
	} else {
		ks = filekeystore.New(filepath.Join(dataDir, "keys"))
	}

	password, err := c.password(cmd, ks)
	if err != nil {
		return identity.Zero, nil, err
	}

	pk, created, err := ks.Key(operatorKeyName, password)
	if err != nil {
		return identity.Zero, nil, fmt.Errorf("operator key: %w", err)
	}
	operator = identity.FromPublicKey(&pk.PublicKey)
	if created {
		logger.Infof("new operator key created: %s", operator)
	} else {
		logger.Debugf("using existing operator key: %s", operator)
	}
	return operator, ks, nil
}

func (c *command) password(cmd *cobra.Command, ks keystore.Service) (password string, err error) {
	if p := c.config.GetString(optionNamePassword); p != "" {
		return p, nil
	}
	if p := c.config.GetString(optionNamePasswordFile); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		return string(bytes.TrimSpace(b)), nil
	}

	exists, err := ks.Exists(operatorKeyName)
	if err != nil {
		return "", err
	}
	if exists {
		// key exists, request password to decrypt it
		return terminalPromptPassword(cmd, c.passwordReader, "Password")
	}

	// key does not exist, ask for a new one and confirm it
	cmd.Println("PowerPay node is booting up for the first time. Please provide a password for the operator wallet key.")
	return terminalPromptCreatePassword(cmd, c.passwordReader)
}

func terminalPromptPassword(cmd *cobra.Command, r passwordReader, title string) (password string, err error) {
	cmd.Print(title + ": ")
	password, err = r.ReadPassword()
	cmd.Println()
	if err != nil {
		return "", err
	}
	return password, nil
}

func terminalPromptCreatePassword(cmd *cobra.Command, r passwordReader) (password string, err error) {
	password, err = terminalPromptPassword(cmd, r, "Password")
	if err != nil {
		return "", err
	}

	confirmPassword, err := terminalPromptPassword(cmd, r, "Confirm password")
	if err != nil {
		return "", err
	}

	if password != confirmPassword {
		return "", errPasswordMismatch
	}

	return password, nil
}

type passwordReader interface {
	ReadPassword() (password string, err error)
}

type stdInPasswordReader struct{}

func (stdInPasswordReader) ReadPassword() (password string, err error) {
	v, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(v), err
}
