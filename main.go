package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/loaa/reading-console/auth"
	"github.com/loaa/reading-console/config"
	"github.com/loaa/reading-console/handlers"
	"github.com/loaa/reading-console/models"
	"github.com/loaa/reading-console/state"
	"github.com/loaa/reading-console/store"
	"github.com/loaa/reading-console/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	local, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open local store")
	}

	var st store.Store = local
	if cfg.StoreMode == config.StoreRemote {
		remote, err := store.NewMongo(ctx, cfg.MongoURI, cfg.DBName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect remote store")
		}
		// One-time copy of local-only state; safe to re-run after failure.
		if _, err := store.Migrate(ctx, local, local, remote, log); err != nil {
			log.Fatal().Err(err).Msg("migrate local data")
		}
		local.Close(ctx)
		st = remote
	}
	defer st.Close(context.Background())

	appState := state.New()
	if err := loadState(ctx, st, appState, cfg.EventWindow); err != nil {
		log.Fatal().Err(err).Msg("load state")
	}
	if err := ensureBootstrapAdmin(ctx, st, appState); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin")
	}
	if err := subscribe(ctx, st, appState); err != nil {
		log.Fatal().Err(err).Msg("subscribe to snapshots")
	}

	if cfg.WebAddr != "" {
		srv := web.NewServer(appState, log)
		go func() {
			if err := srv.ListenAndServe(cfg.WebAddr); err != nil {
				log.Error().Err(err).Msg("widget api stopped")
			}
		}()
	}

	session := auth.NewSession()
	console := handlers.NewConsole(appState, st, session)
	repl(ctx, console, session)
}

// loadState reads all collections and installs them, normalized, into the
// in-memory state.
func loadState(ctx context.Context, st store.Store, appState *state.State, eventWindow int) error {
	users, err := st.LoadUsers(ctx)
	if err != nil {
		return err
	}
	books, err := st.LoadBooks(ctx)
	if err != nil {
		return err
	}
	events, err := st.LoadEvents(ctx, eventWindow)
	if err != nil {
		return err
	}
	appState.ReplaceUsers(users)
	appState.ReplaceBooks(books)
	appState.ReplaceEvents(events)
	return nil
}

// ensureBootstrapAdmin creates the distinguished admin account when absent,
// before any command is accepted.
func ensureBootstrapAdmin(ctx context.Context, st store.Store, appState *state.State) error {
	if _, exists := appState.UserByName(models.BootstrapAdmin); exists {
		return nil
	}
	admin := models.User{
		Username:  models.BootstrapAdmin,
		Password:  models.BootstrapAdminPassword,
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := st.SaveUser(ctx, admin); err != nil {
		return err
	}
	appState.PutUser(admin)
	return nil
}

func subscribe(ctx context.Context, st store.Store, appState *state.State) error {
	if err := st.SubscribeBooks(ctx, appState.ReplaceBooks); err != nil {
		return err
	}
	if err := st.SubscribeEvents(ctx, appState.ReplaceEvents); err != nil {
		return err
	}
	return st.SubscribeUsers(ctx, appState.ReplaceUsers)
}

// repl reads command lines, tokenizes them (quotes keep multi-word
// arguments together), prompts for any passwords the command needs, and
// dispatches. Commands run strictly sequentially: each result, including
// its persistence writes, completes before the next prompt.
func repl(ctx context.Context, console *handlers.Console, session *auth.Session) {
	fmt.Println("reading-console. Type 'help' for commands, 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("\n%s@reading-console (%s) > ", session.CurrentUser, session.CurrentRole)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		args, err := shlex.Split(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch strings.ToLower(args[0]) {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return
		case "clear":
			fmt.Print("\033[2J\033[H")
			continue
		}

		args, err = fillSecrets(args, scanner)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}

		res := console.Dispatch(ctx, args)
		if res.Err != nil {
			fmt.Println("error:", res.Err)
			continue
		}
		for _, l := range res.Lines {
			fmt.Println(l)
		}
	}
}

// fillSecrets prompts for password arguments the user left off the line so
// secrets never have to be typed in the clear. The dispatcher itself only
// ever sees a fully-assembled argument list.
func fillSecrets(args []string, scanner *bufio.Scanner) ([]string, error) {
	switch strings.ToLower(args[0]) {
	case "login":
		if len(args) == 2 {
			pass, err := readPassword("password: ")
			if err != nil {
				return nil, err
			}
			args = append(args, pass)
		}
	case "changepass":
		if len(args) == 1 {
			oldPass, err := readPassword("old password: ")
			if err != nil {
				return nil, err
			}
			newPass, err := readPassword("new password: ")
			if err != nil {
				return nil, err
			}
			args = append(args, oldPass, newPass)
		}
	case "createuser", "setpass":
		if len(args) == 2 {
			pass, err := readPassword(fmt.Sprintf("password for %s: ", args[1]))
			if err != nil {
				return nil, err
			}
			args = append(args, pass)
		}
	}
	return args, nil
}

// readPassword reads a masked password from the terminal.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
