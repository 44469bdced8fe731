/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Seednode/santabox/exchange"
	"gopkg.in/yaml.v3"
)

// rosterFile is the on-disk layout accepted by --roster-file:
//
//	title: Secret Santa 2026
//	participants: [Ariel, Kurt, Scott, Linda, Daniel]
//	exclusions:
//	  - giver: Kurt
//	    receiver: Ariel
type rosterFile struct {
	Title        string          `yaml:"title"`
	Participants []string        `yaml:"participants"`
	Exclusions   []exchange.Pair `yaml:"exclusions"`
}

func readRosterFile(path string) (*rosterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rf rosterFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse roster file %s: %w", path, err)
	}

	return &rf, nil
}

// parseForbid accepts "giver:receiver".
func parseForbid(value string) (exchange.Pair, error) {
	giver, receiver, ok := strings.Cut(value, ":")
	giver, receiver = strings.TrimSpace(giver), strings.TrimSpace(receiver)

	if !ok || giver == "" || receiver == "" {
		return exchange.Pair{}, fmt.Errorf("invalid --forbid value %q (expected giver:receiver)", value)
	}

	return exchange.Pair{Giver: giver, Receiver: receiver}, nil
}

// loadRoster merges the roster file with --roster and --forbid, file
// entries first, and builds the immutable roster and exclusion set.
func (c *Config) loadRoster() error {
	var (
		names []string
		pairs []exchange.Pair
	)

	if c.rosterFile != "" {
		rf, err := readRosterFile(c.rosterFile)
		if err != nil {
			return err
		}

		names = append(names, rf.Participants...)
		pairs = append(pairs, rf.Exclusions...)

		if rf.Title != "" && !c.titleSet {
			c.title = rf.Title
		}
	}

	names = append(names, c.roster...)

	for _, value := range c.forbid {
		p, err := parseForbid(value)
		if err != nil {
			return err
		}

		pairs = append(pairs, p)
	}

	roster, err := exchange.NewRoster(names...)
	if errors.Is(err, exchange.ErrEmptyRoster) {
		return errors.New("no participants given; use --roster or --roster-file")
	}
	if err != nil {
		return err
	}

	exclusions := exchange.NewForbidden(pairs...)
	if err := roster.Check(exclusions); err != nil {
		return err
	}

	c.participants = roster
	c.exclusions = exclusions

	return nil
}
