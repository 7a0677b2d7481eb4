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
	"time"

	"github.com/IMINABO1/Vault/server/auth"
	"github.com/IMINABO1/Vault/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/spf13/cobra"
)

func createTokenCmd() *cobra.Command {
	var (
		subject  string
		fullName string
		email    string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a vault user",
		Long: `Sign an RS256 bearer token with the server's private key.
The token is accepted by a server started with the same config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := serverConfig()
			if err != nil {
				return err
			}

			privateKeyPem := config.GetString("vault.privateKeyPem")
			if privateKeyPem == "" {
				return formattedError("must set 'vault.privateKeyPem' in %s to sign tokens", config.ConfigFileUsed())
			}

			keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem([]byte(privateKeyPem))
			if err != nil {
				return err
			}

			now := time.Now()
			token, err := auth.EncodeJWT(auth.VaultTokenClaims{
				FullName: fullName,
				Email:    email,
				StandardClaims: jwt.StandardClaims{
					Subject:   subject,
					IssuedAt:  now.Unix(),
					ExpiresAt: now.Add(ttl).Unix(),
				},
			}, keyPair)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "", "id of the user the token is for")
	cmd.Flags().StringVar(&fullName, "name", "", "full name of the user")
	cmd.Flags().StringVar(&email, "email", "", "e-mail of the user")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "how long the token is valid")
	cmd.MarkFlagRequired("sub")

	return cmd
}
