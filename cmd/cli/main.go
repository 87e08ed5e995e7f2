// Command sk is a command-line client for the Spell Keeper API.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// Context is handed to every command's Run.
type Context struct {
	Server  string
	Timeout time.Duration
	Out     io.Writer
}

// api returns a client, authenticated when auth is set.
func (c *Context) api(auth bool) (*client, error) {
	if !auth {
		return newClient(c.Server, "", c.Timeout), nil
	}
	tf, err := loadToken()
	if err != nil {
		return nil, err
	}
	return newClient(c.Server, tf.AccessToken, c.Timeout), nil
}

// CLI is the kong command tree.
type CLI struct {
	Version kong.VersionFlag `help:"Print version."`
	Server  string           `help:"API base URL." default:"http://localhost:8080" env:"SK_SERVER"`
	Timeout time.Duration    `help:"Request timeout." default:"10s"`

	Register RegisterCmd `cmd:"" help:"Create an account and sign in."`
	Login    LoginCmd    `cmd:"" help:"Sign in."`
	Logout   LogoutCmd   `cmd:"" help:"Forget the saved token."`
	Spells   struct {
		List SpellListCmd `cmd:"" default:"1" help:"List your spells."`
		Add  SpellAddCmd  `cmd:"" help:"Add a spell."`
		Edit SpellEditCmd `cmd:"" help:"Edit a spell."`
		Rm   SpellRmCmd   `cmd:"" help:"Delete a spell."`
	} `cmd:"" help:"Manage spells."`
	Complete    CompleteCmd    `cmd:"" help:"Complete a spell for the current period."`
	Stats       StatsCmd       `cmd:"" help:"Show your progress."`
	Talismans   TalismansCmd   `cmd:"" help:"Show talismans."`
	Leaderboard LeaderboardCmd `cmd:"" help:"Show the top players."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("sk"),
		kong.Description("Spell Keeper client"),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("%s (%s)", version, buildDate)},
	)
	err := kctx.Run(&Context{Server: cli.Server, Timeout: cli.Timeout, Out: os.Stdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
