// rgb-cli is the command-line interface for inspecting the contracts and
// schemas in a running rgbd instance's PostgreSQL store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ledgerseal/rgbcore/internal/store"
	"github.com/ledgerseal/rgbcore/pkg/ids"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("rgb-cli v%s\n", version)

	case "help":
		printUsage()

	case "contract":
		if len(os.Args) < 3 {
			fmt.Println("Usage: rgb-cli contract <subcommand>")
			fmt.Println("Subcommands: status <contract_id>, transitions <contract_id>")
			os.Exit(1)
		}
		cmdContract(os.Args[2:])

	case "schema":
		if len(os.Args) < 3 {
			fmt.Println("Usage: rgb-cli schema <subcommand>")
			fmt.Println("Subcommands: show <schema_id>")
			os.Exit(1)
		}
		cmdSchema(os.Args[2:])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("rgb-cli - command-line interface for rgbcore")
	fmt.Println()
	fmt.Println("Usage: rgb-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version     Show version information")
	fmt.Println("  help        Show this help message")
	fmt.Println("  contract    Contract operations (status, transitions)")
	fmt.Println("  schema      Schema operations (show)")
	fmt.Println()
	fmt.Println("Run 'rgb-cli <command>' without a subcommand to list its subcommands.")
}

func connectStore(ctx context.Context) (*store.Store, error) {
	return store.New(ctx, store.DefaultConfig())
}

func cmdContract(args []string) {
	ctx := context.Background()

	switch args[0] {
	case "status":
		if len(args) < 2 {
			fmt.Println("Usage: rgb-cli contract status <contract_id_hex>")
			return
		}
		contractId, err := parseContractId(args[1])
		if err != nil {
			fmt.Printf("Invalid contract id: %v\n", err)
			return
		}
		st, err := connectStore(ctx)
		if err != nil {
			fmt.Printf("Failed to connect to node: %v\n", err)
			return
		}
		defer st.Close()

		g, err := st.GetGenesis(ctx, contractId)
		if err != nil {
			fmt.Printf("Contract %s not found: %v\n", contractId, err)
			return
		}
		transitions, err := st.ListTransitions(ctx, contractId)
		if err != nil {
			fmt.Printf("Failed to list transitions: %v\n", err)
			return
		}
		fmt.Println("Contract Status:")
		fmt.Printf("  Contract ID: %s\n", contractId)
		fmt.Printf("  Schema ID:   %s\n", g.SchemaId)
		fmt.Printf("  Chain-net:   %s\n", g.ChainNet)
		fmt.Printf("  Transitions: %d\n", len(transitions))

	case "transitions":
		if len(args) < 2 {
			fmt.Println("Usage: rgb-cli contract transitions <contract_id_hex>")
			return
		}
		contractId, err := parseContractId(args[1])
		if err != nil {
			fmt.Printf("Invalid contract id: %v\n", err)
			return
		}
		st, err := connectStore(ctx)
		if err != nil {
			fmt.Printf("Failed to connect to node: %v\n", err)
			return
		}
		defer st.Close()

		transitions, err := st.ListTransitions(ctx, contractId)
		if err != nil {
			fmt.Printf("Failed to list transitions: %v\n", err)
			return
		}
		if len(transitions) == 0 {
			fmt.Println("  (none)")
			return
		}
		for opid, t := range transitions {
			fmt.Printf("  %s  type=%d  inputs=%d\n", opid, t.TransitionType, len(t.Inputs))
		}

	default:
		fmt.Printf("Unknown contract command: %s\n", args[0])
	}
}

func cmdSchema(args []string) {
	ctx := context.Background()

	switch args[0] {
	case "show":
		if len(args) < 2 {
			fmt.Println("Usage: rgb-cli schema show <schema_id_hex>")
			return
		}
		schemaId, err := parseSchemaId(args[1])
		if err != nil {
			fmt.Printf("Invalid schema id: %v\n", err)
			return
		}
		st, err := connectStore(ctx)
		if err != nil {
			fmt.Printf("Failed to connect to node: %v\n", err)
			return
		}
		defer st.Close()

		sch, err := st.GetSchema(ctx, schemaId)
		if err != nil {
			fmt.Printf("Schema %s not found: %v\n", schemaId, err)
			return
		}
		fmt.Println("Schema:")
		fmt.Printf("  Global state types: %d\n", len(sch.GlobalState))
		fmt.Printf("  Assignment types:   %d\n", len(sch.Assignments))
		fmt.Printf("  Transition types:   %d\n", len(sch.Transitions))
		fmt.Printf("  Metadata types:     %d\n", len(sch.Meta))

	default:
		fmt.Printf("Unknown schema command: %s\n", args[0])
	}
}

func parseContractId(hexStr string) (ids.ContractId, error) {
	b, err := decodeHex32(hexStr)
	if err != nil {
		return ids.ContractId{}, err
	}
	return ids.ContractId(ids.Bytes32FromSlice(b)), nil
}

func parseSchemaId(hexStr string) (ids.SchemaId, error) {
	b, err := decodeHex32(hexStr)
	if err != nil {
		return ids.SchemaId{}, err
	}
	return ids.SchemaId(ids.Bytes32FromSlice(b)), nil
}

func decodeHex32(s string) ([]byte, error) {
	if len(s) != 64 {
		return nil, fmt.Errorf("expected 64 hex characters, got %d", len(s))
	}
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		hi, err := hexNibble(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex character %q", c)
	}
}
