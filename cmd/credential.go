package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/credstorage/go-credential-server/api"
	"github.com/credstorage/go-credential-server/crypto"
	"github.com/credstorage/go-credential-server/types"
)

var (
	serverURL      string
	publicKeyPath  string
	privateKeyPath string
	primaryValue   string
	secondaryValue string
	description    string
)

func init() {
	for _, cmd := range []*cobra.Command{getCmd, storeCmd, updateCmd, deleteCmd} {
		cmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "credential storage server URL")
		cmd.Flags().StringVarP(&publicKeyPath, "public-key", "k", "public.key", "path to the base64 public key file")
		rootCmd.AddCommand(cmd)
	}
	getCmd.Flags().StringVarP(&privateKeyPath, "private-key", "p", "private.key", "path to the base64 private key file")
	for _, cmd := range []*cobra.Command{storeCmd, updateCmd} {
		cmd.Flags().StringVar(&primaryValue, "primary", "", "primary credential (e.g. username)")
		cmd.Flags().StringVar(&secondaryValue, "secondary", "", "secondary credential (e.g. password)")
		cmd.Flags().StringVar(&description, "description", "", "plain text annotation")
		cmd.MarkFlagRequired("primary")
	}
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Retrieve and decrypt the stored credential pair",
	Run: func(cmd *cobra.Command, args []string) {
		identity := readKeyFile(publicKeyPath)

		var entry types.Credential
		resp, err := newClient().R().
			SetHeader(api.PublicKeyHeader, identity).
			SetResult(&entry).
			Get("/api/v1/credential")
		check(err)
		if resp.StatusCode() != http.StatusOK {
			fmt.Printf("Server returned %s\n", resp.Status())
			os.Exit(1)
		}

		privateDER, err := base64.StdEncoding.DecodeString(readKeyFile(privateKeyPath))
		check(err)
		decrypter, err := crypto.NewEnvelopeDecrypter(privateDER)
		check(err)

		symmetricKey, err := decrypter.DecryptKey(entry.SymmetricKey)
		check(err)
		primary, err := decrypter.DecryptField(symmetricKey, entry.Primary)
		check(err)
		secondary, err := decrypter.DecryptField(symmetricKey, entry.Secondary)
		check(err)

		fmt.Printf("primary:     %s\n", primary)
		if secondary != "" {
			fmt.Printf("secondary:   %s\n", secondary)
		}
		if entry.Description != "" {
			fmt.Printf("description: %s\n", entry.Description)
		}
		if entry.UpdatedAt != nil {
			fmt.Printf("updated_at:  %s\n", entry.UpdatedAt)
		}
	},
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Store a credential pair on the server",
	Run: func(cmd *cobra.Command, args []string) {
		submitCredential(resty.MethodPost, http.StatusCreated)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the stored credential pair",
	Run: func(cmd *cobra.Command, args []string) {
		submitCredential(resty.MethodPut, http.StatusOK)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored credential pair",
	Run: func(cmd *cobra.Command, args []string) {
		identity := readKeyFile(publicKeyPath)
		resp, err := newClient().R().
			SetHeader(api.PublicKeyHeader, identity).
			Delete("/api/v1/credential")
		check(err)
		if resp.StatusCode() != http.StatusOK {
			fmt.Printf("Server returned %s\n", resp.Status())
			os.Exit(1)
		}
		fmt.Println("Deleted.")
	},
}

func submitCredential(method string, expectedStatus int) {
	identity := readKeyFile(publicKeyPath)
	payload := types.InputCredential{
		Primary:     primaryValue,
		Secondary:   secondaryValue,
		Description: description,
	}

	req := newClient().R().
		SetHeader(api.PublicKeyHeader, identity).
		SetBody(payload)

	var resp *resty.Response
	var err error
	if method == resty.MethodPost {
		resp, err = req.Post("/api/v1/credential")
	} else {
		resp, err = req.Put("/api/v1/credential")
	}
	check(err)
	if resp.StatusCode() != expectedStatus {
		fmt.Printf("Server returned %s: %s\n", resp.Status(), resp.String())
		os.Exit(1)
	}
	fmt.Println("Stored.")
}

func newClient() *resty.Client {
	return resty.New().SetBaseURL(serverURL)
}

func readKeyFile(path string) string {
	content, err := os.ReadFile(path)
	check(err)
	return string(content)
}
