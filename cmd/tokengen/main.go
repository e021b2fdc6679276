// Package main mints identity proofs for local use against the registry API.
// Proofs signed with the dev key will NOT verify outside the dev environment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"credreg/internal/platform/config"
	"credreg/internal/registry/gate/jwtproof"
	"credreg/pkg/domain"
	"credreg/pkg/platform/middleware/caller"
)

type proofOutput struct {
	Identity  string            `json:"identity"`
	Proof     string            `json:"proof"`
	ExpiresIn string            `json:"expires_in"`
	Headers   map[string]string `json:"headers"`
}

func main() {
	identityFlag := flag.String("identity", "", "Identity to prove (required)")
	key := flag.String("key", envOr("PROOF_SIGNING_KEY", config.DevProofSigningKey), "HS256 signing key")
	issuer := flag.String("issuer", envOr("PROOF_ISSUER", "credreg"), "Proof issuer")
	ttl := flag.Duration("ttl", 15*time.Minute, "Proof time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	identity, err := domain.ParseIdentity(*identityFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -identity: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	proof, err := jwtproof.New(*key, *issuer, *ttl).Mint(context.Background(), identity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint proof: %v\n", err)
		os.Exit(1)
	}

	headers := map[string]string{
		caller.IdentityHeader: identity.String(),
		"Authorization":       "Bearer " + proof,
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(proofOutput{
			Identity:  identity.String(),
			Proof:     proof,
			ExpiresIn: ttl.String(),
			Headers:   headers,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Identity:   %s\n", identity)
	fmt.Printf("Expires In: %s\n", *ttl)
	fmt.Printf("Proof:      %s\n\n", proof)
	fmt.Println("Example:")
	fmt.Printf("  curl -X POST http://localhost:8080/credentials \\\n")
	fmt.Printf("    -H '%s: %s' \\\n", caller.IdentityHeader, identity)
	fmt.Printf("    -H 'Authorization: Bearer %s' \\\n", proof)
	fmt.Printf("    -H 'Content-Type: application/json' \\\n")
	fmt.Printf("    -d '{\"recipient\":\"GRECIPIENT\",\"title\":\"Rust on Stellar\",\"course_id\":\"RUST-101\"}'\n")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
