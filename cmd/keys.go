package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	outputDir string
	keyBits   int
)

func init() {
	keysCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory the key files are written to")
	keysCmd.Flags().IntVarP(&keyBits, "bits", "b", 2048, "RSA key size in bits")
	rootCmd.AddCommand(keysCmd)
}

// keysCmd generates the RSA key pair used with the credential storage
// service: the base64 public key doubles as the storage identity, the
// private key never leaves this machine.
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate an RSA key pair",
	Long:  "Generate an RSA key pair for use with the credential storage service. Writes public.key (PKIX, base64) and private.key (PKCS#8, base64).",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := rsa.GenerateKey(rand.Reader, keyBits)
		check(err)

		publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
		check(err)
		privateDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
		check(err)

		publicPath := filepath.Join(outputDir, "public.key")
		privatePath := filepath.Join(outputDir, "private.key")
		for _, path := range []string{publicPath, privatePath} {
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				fmt.Printf("File already exists: %s\n", path)
				os.Exit(1)
			}
		}

		check(os.WriteFile(publicPath, []byte(base64.StdEncoding.EncodeToString(publicDER)), 0644))
		check(os.WriteFile(privatePath, []byte(base64.StdEncoding.EncodeToString(privateDER)), 0600))
		fmt.Printf("Public key:  %s\nPrivate key: %s\n", publicPath, privatePath)
	},
}
