// Command paramclient is the CLI surface spec.md documents for
// completeness (§6): "param list", "param get NAME", and
// "param set NAME TYPE VALUE" against a parameter-registry service
// advertised somewhere on the fabric. It is an external collaborator
// built on the core, not part of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/meshwire/transport"
	"github.com/meshwire/transport/internal/core/identity"
	"github.com/meshwire/transport/internal/discovery"
	"github.com/meshwire/transport/internal/paramregistry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "paramclient: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	namespace := flag.String("namespace", "", "registry namespace (scopes the service topic)")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: param [-namespace NAME] list | get NAME | set NAME TYPE VALUE")
	}

	topic := paramregistry.DefaultTopic
	if *namespace != "" {
		topic = topic + "/" + *namespace
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	node, err := dialNode(ctx)
	if err != nil {
		return fmt.Errorf("connect to fabric: %w", err)
	}
	defer node.Close()

	client := paramregistry.NewClient(node, topic, *timeout)

	switch args[0] {
	case "list":
		return cmdList(client)
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: param get NAME")
		}
		return cmdGet(client, args[1])
	case "set":
		if len(args) != 4 {
			return fmt.Errorf("usage: param set NAME TYPE VALUE")
		}
		return cmdSet(client, args[1], args[2], args[3])
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func dialNode(ctx context.Context) (*transport.Node, error) {
	disc, err := discovery.New(ctx, discovery.DefaultConfig(), transport.ProcessID(), identity.Partition())
	if err != nil {
		return nil, err
	}
	return transport.NewNode(ctx, disc)
}

func cmdList(client *paramregistry.Client) error {
	params, err := client.List()
	if err != nil {
		return err
	}
	for _, p := range params {
		fmt.Printf("%s\t%s\t%s\n", p.Name, p.Type, p.Value)
	}
	return nil
}

func cmdGet(client *paramregistry.Client, name string) error {
	p, err := client.Get(name)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\n", p.Name, p.Type, p.Value)
	return nil
}

func cmdSet(client *paramregistry.Client, name, typ, value string) error {
	p, err := client.Set(name, typ, value)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\n", p.Name, p.Type, p.Value)
	return nil
}
