// Package main provides a CLI tool for managing role credentials: key
// generation, credential issuance, and offline verification.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"warrant/internal/platform/database"
	"warrant/internal/rbac/models"
	"warrant/internal/rbac/sign"
	"warrant/internal/rbac/store"
	id "warrant/pkg/domain"
)

func main() {
	keygenCmd := flag.NewFlagSet("keygen", flag.ExitOnError)
	issueCmd := flag.NewFlagSet("issue", flag.ExitOnError)
	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)

	// keygen flags
	keygenOut := keygenCmd.String("out", "", "Write the private key to this file instead of stdout")

	// issue flags
	issueKey := issueCmd.String("key", "", "Path to the issuer's private key file (required)")
	issueIssuer := issueCmd.String("issuer", "", "Issuer DID (required)")
	issueSubject := issueCmd.String("subject", "", "Subject (holder) DID (required)")
	issueRoles := issueCmd.String("roles", "", "Comma-separated roles to grant (required)")
	issueID := issueCmd.String("id", "", "Credential ID. Generated from issuer and role if empty.")
	issueExpires := issueCmd.Duration("expires-in", 0, "Validity window. Zero means no expiration date.")
	issueMethod := issueCmd.String("verification-method", "", "Proof verification method. Defaults to <issuer>#key-1.")
	issueOut := issueCmd.String("out", "", "Write the credential to this file instead of stdout")

	// verify flags
	verifyFile := verifyCmd.String("file", "", "Path to the credential JSON file (required)")
	verifyPub := verifyCmd.String("issuer-key", "", "Issuer public key, base64 raw-URL encoded (required)")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importDB := importCmd.String("db", "", "Path to the agent's SQLite database (required)")
	importFile := importCmd.String("file", "", "Credential JSON file to import (required)")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportDB := exportCmd.String("db", "", "Path to the agent's SQLite database (required)")
	exportRole := exportCmd.String("role", "", "Role whose credential to export (required)")
	exportOut := exportCmd.String("out", "", "Destination file (required)")

	rolesCmd := flag.NewFlagSet("roles", flag.ExitOnError)
	rolesDB := rolesCmd.String("db", "", "Path to the agent's SQLite database (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "keygen":
		keygenCmd.Parse(os.Args[2:])
		runKeygen(*keygenOut)
	case "issue":
		issueCmd.Parse(os.Args[2:])
		runIssue(*issueKey, *issueIssuer, *issueSubject, *issueRoles, *issueID, *issueMethod, *issueOut, *issueExpires)
	case "verify":
		verifyCmd.Parse(os.Args[2:])
		runVerify(*verifyFile, *verifyPub)
	case "import":
		importCmd.Parse(os.Args[2:])
		runImport(*importDB, *importFile)
	case "export":
		exportCmd.Parse(os.Args[2:])
		runExport(*exportDB, *exportRole, *exportOut)
	case "roles":
		rolesCmd.Parse(os.Args[2:])
		runRoles(*rolesDB)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`credctl - Manage role credentials

Usage:
  credctl <command> [flags]

Commands:
  keygen    Generate an Ed25519 keypair
  issue     Issue a signed role credential
  verify    Verify a credential file against an issuer public key
  import    Import a credential file into an agent's credential store
  export    Export a stored credential to a file
  roles     List the roles held in an agent's credential store

Examples:
  # Generate an issuer keypair
  credctl keygen -out issuer.key

  # Issue an admin credential valid for 30 days
  credctl issue -key issuer.key -issuer did:example:issuer \
    -subject did:example:agent-1 -roles admin -expires-in 720h \
    -out admin.json

  # Verify it offline
  credctl verify -file admin.json -issuer-key <public key>

Use "credctl <command> -h" for more information about a command.`)
}

func runKeygen(out string) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fatal("generating key: %v", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(priv.Seed())
	if out != "" {
		if err := os.WriteFile(out, []byte(encoded+"\n"), 0o600); err != nil {
			fatal("writing key file: %v", err)
		}
		fmt.Printf("Private key written to %s\n", out)
	} else {
		fmt.Printf("Private key: %s\n", encoded)
	}
	fmt.Printf("Public key:  %s\n", sign.EncodePublicKey(pub))
}

func runIssue(keyPath, issuer, subject, roles, credentialID, method, out string, expiresIn time.Duration) {
	if keyPath == "" || issuer == "" || subject == "" || roles == "" {
		fatal("issue requires -key, -issuer, -subject and -roles")
	}
	key := readPrivateKey(keyPath)

	issuerDID, err := id.ParseDID(issuer)
	if err != nil {
		fatal("invalid issuer: %v", err)
	}
	subjectDID, err := id.ParseDID(subject)
	if err != nil {
		fatal("invalid subject: %v", err)
	}
	roleList := splitRoles(roles)
	if len(roleList) == 0 {
		fatal("no roles given")
	}

	now := time.Now().UTC()
	if credentialID == "" {
		credentialID = fmt.Sprintf("%s/credentials/%s/%d", issuer, roleList[0], now.Unix())
	}
	if method == "" {
		method = issuer + "#key-1"
	}

	credential := models.RoleCredential{
		Context:      []string{"https://www.w3.org/2018/credentials/v1"},
		ID:           credentialID,
		Type:         []string{models.TypeVerifiableCredential, models.TypeRoleCredential},
		Issuer:       issuerDID,
		IssuanceDate: now,
		CredentialSubject: models.CredentialSubject{
			ID:    subjectDID,
			Roles: roleList,
		},
	}
	if expiresIn > 0 {
		expires := now.Add(expiresIn)
		credential.ExpirationDate = &expires
	}
	if err := sign.SignCredential(&credential, key, method, now); err != nil {
		fatal("signing credential: %v", err)
	}

	encoded, err := json.MarshalIndent(credential, "", "  ")
	if err != nil {
		fatal("encoding credential: %v", err)
	}
	if out != "" {
		if err := os.WriteFile(out, append(encoded, '\n'), 0o600); err != nil {
			fatal("writing credential file: %v", err)
		}
		fmt.Printf("Credential written to %s\n", out)
	} else {
		fmt.Println(string(encoded))
	}
}

func runVerify(path, issuerKey string) {
	if path == "" || issuerKey == "" {
		fatal("verify requires -file and -issuer-key")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		fatal("reading credential: %v", err)
	}
	var credential models.RoleCredential
	if err := json.Unmarshal(raw, &credential); err != nil {
		fatal("parsing credential: %v", err)
	}
	pub, err := sign.DecodePublicKey(issuerKey)
	if err != nil {
		fatal("decoding issuer key: %v", err)
	}
	if err := sign.VerifyCredentialProof(credential, pub); err != nil {
		fatal("signature invalid: %v", err)
	}

	fmt.Println("Signature: valid")
	fmt.Printf("Issuer:    %s\n", credential.Issuer)
	fmt.Printf("Subject:   %s\n", credential.CredentialSubject.ID)
	fmt.Printf("Roles:     %v\n", credential.CredentialSubject.RoleSet())
	if credential.ExpirationDate != nil {
		status := "valid"
		if credential.Expired(time.Now()) {
			status = "EXPIRED"
		}
		fmt.Printf("Expires:   %s (%s)\n", credential.ExpirationDate.Format(time.RFC3339), status)
	} else {
		fmt.Println("Expires:   never")
	}
}

func runImport(dbPath, file string) {
	if dbPath == "" || file == "" {
		fatal("import requires -db and -file")
	}
	ctx := context.Background()
	credentials := openStore(ctx, dbPath)
	if err := credentials.ImportCredentialFile(ctx, file); err != nil {
		fatal("import failed: %v", err)
	}
	fmt.Printf("Imported %s\n", file)
}

func runExport(dbPath, role, out string) {
	if dbPath == "" || role == "" || out == "" {
		fatal("export requires -db, -role and -out")
	}
	ctx := context.Background()
	credentials := openStore(ctx, dbPath)
	parsed, err := id.ParseRole(role)
	if err != nil {
		fatal("invalid role: %v", err)
	}
	if err := credentials.ExportCredentialFile(ctx, parsed, out); err != nil {
		fatal("export failed: %v", err)
	}
	fmt.Printf("Exported %s credential to %s\n", role, out)
}

func runRoles(dbPath string) {
	if dbPath == "" {
		fatal("roles requires -db")
	}
	ctx := context.Background()
	credentials := openStore(ctx, dbPath)
	roles := credentials.Roles(ctx)
	if len(roles) == 0 {
		fmt.Println("No credentials stored")
		return
	}
	for _, role := range roles {
		fmt.Println(role)
	}
}

// openStore opens the agent's database and loads the credential store from
// it. The CLI never signs presentations, so no holder key is configured.
func openStore(ctx context.Context, dbPath string) *store.CredentialStore {
	db, err := database.Open(ctx, dbPath)
	if err != nil {
		fatal("opening database: %v", err)
	}
	credentials, err := store.New(ctx, store.NewSQLite(db),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		fatal("loading credential store: %v", err)
	}
	return credentials
}

func readPrivateKey(path string) ed25519.PrivateKey {
	raw, err := os.ReadFile(path)
	if err != nil {
		fatal("reading key file: %v", err)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		fatal("key file is not base64: %v", err)
	}
	switch len(decoded) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded)
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(decoded)
	default:
		fatal("key has unexpected length %d", len(decoded))
		return nil
	}
}

func splitRoles(roles string) []string {
	parts := strings.Split(roles, ",")
	result := make([]string, 0, len(parts))
	for _, r := range parts {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
