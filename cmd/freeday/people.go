package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/freeday/internal/config"
	"github.com/dukerupert/freeday/internal/database"
	"github.com/dukerupert/freeday/internal/model"
	"github.com/dukerupert/freeday/internal/store"
	"github.com/go-playground/validator/v10"
)

type newPerson struct {
	Name  string `validate:"required,max=64"`
	Color string `validate:"required,hexcolor"`
}

// runPeople administers the roster directly in the backend database.
func runPeople(args []string, cfg *config.Config, logger *slog.Logger) error {
	if len(args) == 0 || args[0] != "add" {
		return errors.New("usage: freeday people add -name NAME [-color #RRGGBB]")
	}

	fs := flag.NewFlagSet("people add", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	color := fs.String("color", "#4F86C6", "display color")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	p := newPerson{Name: strings.TrimSpace(*name), Color: *color}
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid person: %w", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	people := store.NewPersonStore(db)
	exists, err := people.NameExists(p.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("a person named %q already exists", p.Name)
	}

	created, err := people.Create(p.Name, p.Color)
	if err != nil {
		return err
	}
	logger.Info("person added", "id", created.ID, "name", created.Name)
	fmt.Println(created.ID)
	return nil
}

// findPerson matches arg against ids first, then names case-insensitively.
func findPerson(people []model.Person, arg string) (model.Person, bool) {
	for _, p := range people {
		if p.ID == arg {
			return p, true
		}
	}
	for _, p := range people {
		if strings.EqualFold(p.Name, arg) {
			return p, true
		}
	}
	return model.Person{}, false
}
