package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type RegisterCmd struct {
	Username string `arg:"" help:"Display name on the leaderboard."`
	Email    string `arg:""`
	Password string `arg:""`
}

func (c *RegisterCmd) Run(ctx *Context) error {
	api, _ := ctx.api(false)
	var r authReply
	if err := api.do("POST", "/api/auth/register", map[string]string{
		"username": c.Username, "email": c.Email, "password": c.Password,
	}, &r); err != nil {
		return err
	}
	if err := saveToken(tokenFile{AccessToken: r.Token, ExpiresAt: r.ExpiresAt, Username: r.User.Username}); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, okStyle.Render("Welcome, "+r.User.Username+"!"))
	return nil
}

type LoginCmd struct {
	Email    string `arg:""`
	Password string `arg:""`
}

func (c *LoginCmd) Run(ctx *Context) error {
	api, _ := ctx.api(false)
	var r authReply
	if err := api.do("POST", "/api/auth/login", map[string]string{
		"email": c.Email, "password": c.Password,
	}, &r); err != nil {
		return err
	}
	if err := saveToken(tokenFile{AccessToken: r.Token, ExpiresAt: r.ExpiresAt, Username: r.User.Username}); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s %s\n", okStyle.Render("Logged in as"), r.User.Username)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	if err := removeToken(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "Logged out")
	return nil
}

type SpellListCmd struct{}

func (c *SpellListCmd) Run(ctx *Context) error {
	api, err := ctx.api(true)
	if err != nil {
		return err
	}
	var list []spell
	if err := api.do("GET", "/api/spells", nil, &list); err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(ctx.Out, mutedStyle.Render("No spells yet. Add one with `sk spells add`."))
		return nil
	}
	fmt.Fprintln(ctx.Out, titleStyle.Render("Spells"))
	for _, s := range list {
		mark := "[ ]"
		if s.CompletedThisPeriod {
			mark = okStyle.Render("[x]")
		}
		fmt.Fprintf(ctx.Out, "  %s %s %s %s\n", mark, s.Title,
			mutedStyle.Render(fmt.Sprintf("%s +%dxp", strings.ToLower(s.RepeatType), s.XPReward)),
			mutedStyle.Render(s.ID))
	}
	return nil
}

type SpellAddCmd struct {
	Title       string `arg:""`
	Description string `short:"d" help:"Longer description."`
	Weekly      bool   `short:"w" help:"Repeat weekly instead of daily."`
	XP          int64  `help:"XP reward (1..1000)." default:"10"`
}

func (c *SpellAddCmd) Run(ctx *Context) error {
	api, err := ctx.api(true)
	if err != nil {
		return err
	}
	rt := "DAILY"
	if c.Weekly {
		rt = "WEEKLY"
	}
	var s spell
	if err := api.do("POST", "/api/spells", map[string]any{
		"title": c.Title, "description": c.Description, "repeatType": rt, "xpReward": c.XP,
	}, &s); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s %s %s\n", okStyle.Render("Added"), s.Title, mutedStyle.Render(s.ID))
	return nil
}

type SpellEditCmd struct {
	ID          string  `arg:""`
	Title       *string `help:"New title."`
	Description *string `short:"d" help:"New description."`
	Repeat      *string `help:"DAILY or WEEKLY."`
	XP          *int64  `help:"New XP reward."`
}

func (c *SpellEditCmd) Run(ctx *Context) error {
	api, err := ctx.api(true)
	if err != nil {
		return err
	}
	patch := map[string]any{}
	if c.Title != nil {
		patch["title"] = *c.Title
	}
	if c.Description != nil {
		patch["description"] = *c.Description
	}
	if c.Repeat != nil {
		patch["repeatType"] = *c.Repeat
	}
	if c.XP != nil {
		patch["xpReward"] = *c.XP
	}
	if len(patch) == 0 {
		return fmt.Errorf("nothing to change")
	}
	var s spell
	if err := api.do("PUT", "/api/spells/"+url.PathEscape(c.ID), patch, &s); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s %s\n", okStyle.Render("Updated"), s.Title)
	return nil
}

type SpellRmCmd struct {
	ID string `arg:""`
}

func (c *SpellRmCmd) Run(ctx *Context) error {
	api, err := ctx.api(true)
	if err != nil {
		return err
	}
	var r struct {
		Message string `json:"message"`
	}
	if err := api.do("DELETE", "/api/spells/"+url.PathEscape(c.ID), nil, &r); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, r.Message)
	return nil
}

type CompleteCmd struct {
	ID string `arg:""`
}

func (c *CompleteCmd) Run(ctx *Context) error {
	api, err := ctx.api(true)
	if err != nil {
		return err
	}
	var r completion
	if err := api.do("POST", "/api/spells/"+url.PathEscape(c.ID)+"/complete", nil, &r); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s %s\n", okStyle.Render(r.Message), xpStyle.Render(fmt.Sprintf("+%d XP", r.XPGained)))
	if r.LeveledUp {
		fmt.Fprintln(ctx.Out, xpStyle.Render(fmt.Sprintf("Level up! %d -> %d", r.OldLevel, r.NewLevel)))
	}
	fmt.Fprintf(ctx.Out, "Streak: %d\n", r.NewStreak)
	for _, t := range r.UnlockedTalismans {
		fmt.Fprintf(ctx.Out, "Unlocked %s\n", talismanStyle.Render(t.Name))
	}
	return nil
}

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *Context) error {
	api, err := ctx.api(true)
	if err != nil {
		return err
	}
	var s stats
	if err := api.do("GET", "/api/user/stats", nil, &s); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, titleStyle.Render(fmt.Sprintf("Level %d", s.Level)))
	fmt.Fprintf(ctx.Out, "  XP:        %s\n", xpStyle.Render(strconv.FormatInt(s.XP, 10)))
	fmt.Fprintf(ctx.Out, "  Completed: %d\n", s.TotalSpellsCompleted)
	fmt.Fprintf(ctx.Out, "  Streak:    %d (best %d)\n", s.CurrentStreak, s.MaxStreak)
	fmt.Fprintf(ctx.Out, "  Talismans: %d\n", s.UnlockedTalismans)
	return nil
}

type TalismansCmd struct {
	All bool `short:"a" help:"Show the whole catalog instead of yours."`
}

func (c *TalismansCmd) Run(ctx *Context) error {
	path := "/api/user/talismans"
	if c.All {
		path = "/api/talismans"
	}
	api, err := ctx.api(!c.All)
	if err != nil {
		return err
	}
	var list []talisman
	if err := api.do("GET", path, nil, &list); err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(ctx.Out, mutedStyle.Render("No talismans yet."))
		return nil
	}
	for _, t := range list {
		line := talismanStyle.Render(t.Name) + " " + t.Description
		if t.UnlockedAt != nil {
			line += " " + mutedStyle.Render(t.UnlockedAt.Local().Format("2006-01-02"))
		}
		fmt.Fprintln(ctx.Out, line)
	}
	return nil
}

type LeaderboardCmd struct {
	Limit int `short:"n" help:"How many players (1..100)." default:"10"`
}

func (c *LeaderboardCmd) Run(ctx *Context) error {
	api, _ := ctx.api(false)
	var rows []rankRow
	if err := api.do("GET", "/api/leaderboard?limit="+strconv.Itoa(c.Limit), nil, &rows); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, titleStyle.Render("Leaderboard"))
	for _, r := range rows {
		fmt.Fprintf(ctx.Out, "  %3d. %-32s lvl %-3d %s\n", r.Rank, r.Username, r.Level, xpStyle.Render(strconv.FormatInt(r.XP, 10)+" XP"))
	}
	return nil
}
