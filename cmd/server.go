/*
Copyright © 2026 The Vault Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	devConfig "github.com/IMINABO1/Vault/dev/config"
	"github.com/IMINABO1/Vault/server"
	"github.com/IMINABO1/Vault/shared"
	"github.com/IMINABO1/Vault/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func createServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start a vault server",
		Long: `The vault server verifies uploaded documents, keeps emergency contacts,
guards lockdown mode with a PIN and relays safety beacons.`,
		Run: func(cmd *cobra.Command, args []string) {
			config, err := serverConfig()
			cobra.CheckErr(err)

			server.Start(config, isDevEnv)
		},
	}
}

// serverConfig reads the server config file. Every key can be overridden by
// an env var, e.g. STORE_DRIVER for store.driver.
func serverConfig() (*viper.Viper, error) {
	config := viper.New()

	configFile := cfgFile
	if configFile == "" {
		if !isDevEnv {
			return nil, formattedError("--config is required unless --dev is set")
		}

		var err error
		configFile, err = devConfigFilePath()
		if err != nil {
			return nil, err
		}
	}

	config.SetConfigFile(configFile)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv() // read in environment variables that match

	// Secrets are read from their well known env vars, so they never need
	// to be written into the config file.
	config.BindEnv("oracle.apiKey", "GEMINI_API_KEY")
	config.BindEnv("sendgrid.apiKey", "SENDGRID_API_KEY")
	config.BindEnv("twilio.authToken", "TWILIO_AUTH_TOKEN")
	config.BindEnv("google.applicationCredentials", "GOOGLE_APPLICATION_CREDENTIALS")
	config.BindEnv("store.sqlite.passPhrase", "VAULT_SQLITE_PASSPHRASE")

	shared.SetServerDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading server config file: %v", err)
	}

	return config, nil
}

// devConfigFilePath returns dev/config/server.yml, creating it from the
// built in dev config when missing.
func devConfigFilePath() (string, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(rootDir, "dev", "config")
	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	exists, err := utils.FileExist(configFilePath)
	if err != nil {
		return "", err
	}

	if !exists {
		if err := os.WriteFile(configFilePath, []byte(devConfig.SERVER_YML), 0600); err != nil {
			return "", err
		}
	}

	return configFilePath, nil
}
