package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/rkurbatov/myangular/pkg/driver"
	"github.com/rkurbatov/myangular/pkg/errors"
	"github.com/rkurbatov/myangular/pkg/scope"
	"github.com/rkurbatov/myangular/pkg/values"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "myangular",
		Short: "Reactive expression engine: evaluate, watch and digest",
		Long: "myangular is the reactive core of a data-binding framework:\n" +
			"an expression language evaluated over a scope tree, with\n" +
			"watchers re-checked by a dirty-checking digest loop.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (prompt, ttl, context)")
	root.AddCommand(evalCmd(), replCmd(), watchCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSession() (*driver.Session, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	session := driver.New()
	cfg.apply(session)
	return session, nil
}

func evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate one expression against the configured context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			result, err := session.Eval(args[0])
			if err != nil {
				errors.Display(os.Stderr, err)
				return fmt.Errorf("evaluation failed")
			}
			fmt.Println(result.Inspect())
			return nil
		},
	}
	return cmd
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive expression prompt over a persistent scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			session := driver.New()
			cfg.apply(session)

			rl, err := readline.New(cfg.Prompt)
			if err != nil {
				return err
			}
			defer rl.Close()

			fmt.Println("myangular repl; :scope dumps the scope, :quit exits")
			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					continue
				}
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				line = strings.TrimSpace(line)
				switch {
				case line == "":
					continue
				case line == ":quit":
					return nil
				case line == ":scope":
					dumpScope(session)
					continue
				}
				result, err := session.Root().Apply(line)
				if err != nil {
					errors.Display(os.Stderr, err)
					continue
				}
				// Give deferred digests a chance to run between lines.
				session.Scheduler().Drain()
				fmt.Println(result.Inspect())
			}
		},
	}
}

func dumpScope(session *driver.Session) {
	root := session.Root()
	fmt.Printf("scope %s\n", root.ID)
	for _, name := range root.OwnNames() {
		fmt.Printf("  %s = %s\n", name, root.Get(name).Inspect())
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <expression>...",
		Short: "Watch expressions and digest assignments read from stdin",
		Long: "Registers a watcher per expression, then reads one expression\n" +
			"per line from stdin, applying each and reporting every watcher\n" +
			"that fired.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			for _, expr := range args {
				expr := expr
				_, err := session.Root().Watch(expr, func(newValue, oldValue values.Value, _ *scope.Scope) {
					fmt.Printf("%s: %s -> %s\n", expr, oldValue.Inspect(), newValue.Inspect())
				}, false)
				if err != nil {
					errors.Display(os.Stderr, err)
					return fmt.Errorf("invalid watch expression %q", expr)
				}
			}
			if err := session.Root().Digest(); err != nil {
				return err
			}
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if _, err := session.Root().Apply(line); err != nil {
					errors.Display(os.Stderr, err)
				}
				session.Scheduler().Drain()
			}
			return scanner.Err()
		},
	}
}
