/*
Package arbor is a dynamic form runner engine: it compiles JSON form
definitions into conditional page graphs, validates answers against
per-component schemas, and drives sessions from first page to submission.

# Concept

Arbor treats a form as a graph of pages. Each page owns a set of
components, each component contributes a validation schema, and edges
between pages can be gated by named conditions evaluated over the
session's answers. On every request the engine re-walks the graph from
the start page, so the set of relevant pages always reflects the current
answers; changing an early answer automatically prunes pages that no
longer apply. This Hexagonal Architecture keeps the engine free of
transport concerns: session storage, file uploads, and submission are
ports with pluggable adapters, so Arbor can sit behind the bundled HTTP
server, a CLI, or your own host.

# Key Features

  - Declarative Forms: Pages, components, branching logic, and lists all
    live in one JSON definition.
  - Deterministic Walk: Given the same answers, the relevant pages and
    the next path are always reproducible.
  - Hexagonal Architecture: Core logic is decoupled from adapters
    (Session Store, Uploads, Submission).
  - Strict Contracts: Validates definition integrity and answer types to
    prevent runtime surprises.

# Usage

Initialize a Runner from a definition, then drive pages with Get and
Post. Without options the Runner keeps sessions in memory.

	package main

	import (
		"context"
		"log"
		"os"

		"github.com/aretw0/arbor"
	)

	func main() {
		definition, err := os.ReadFile("./licence-form.json")
		if err != nil {
			log.Fatal(err)
		}

		runner, err := arbor.New(definition)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		sessionID := "session-123"

		// 1. Render the first page
		resp, err := runner.Get(ctx, sessionID, runner.StartPath())
		if err != nil {
			log.Fatal(err)
		}
		log.Println("View:", resp.View)

		// 2. Submit answers; a redirect names the next relevant page
		resp, err = runner.Post(ctx, sessionID, runner.StartPath(), map[string]any{
			"licenceType": "full",
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Println("Next:", resp.Redirect)
	}
*/
package arbor
