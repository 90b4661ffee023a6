/*
Silktest exercises a silk Set end to end against a configured storage
backend. It tracks a handful of note entities through insert, detected
update, and delete saves, then walks a navigation collection over them.

Usage:

	silktest [flags]

The flags are:

	-c, --conf PATH
		Use the given file for the configuration instead of './silk.yml'. The
		file must be in YAML format.
	-d, --db NAME
		Use the named database section from the configuration instead of
		'main'.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/dekarrin/silk"
	"github.com/dekarrin/silk/config"
	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/db/inmem"
	"github.com/dekarrin/silk/db/mongodb"
	"github.com/dekarrin/silk/db/sqlite"
	"github.com/dekarrin/silk/mapping"
	"github.com/dekarrin/silk/types"
)

const (
	exitSuccess   = 0
	exitError     = 1
	exitPanic     = 2
	exitInterrupt = 3
)

var exitCode int

var (
	flagConf = pflag.StringP("conf", "c", "silk.yml", "Path to configuration file")
	flagDB   = pflag.StringP("db", "d", "main", "Name of the database section to use")
)

// Note is the demonstration entity.
type Note struct {
	ID     uuid.UUID `bson:"_id"`
	Title  string    `bson:"title"`
	Body   string    `bson:"body"`
	Author string    `bson:"author"`
}

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			fmt.Fprintf(os.Stderr, "fatal panic: %v\n", panicErr)
			exitCode = exitPanic
		}
		os.Exit(exitCode)
	}()

	pflag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	defer signal.Stop(signalChan)

	go func() {
		select {
		case <-signalChan: // first signal, cancel context
			cancel()
		case <-ctx.Done():
			return
		}
		<-signalChan // second signal, hard exit
		os.Exit(exitInterrupt)
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		exitCode = exitError
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*flagConf)
	if err != nil {
		return err
	}

	log, err := cfg.Log.Create()
	if err != nil {
		return err
	}

	dbCfg, ok := cfg.DBs[*flagDB]
	if !ok {
		return fmt.Errorf("config has no database section %q", *flagDB)
	}

	reg := &config.ConnectorRegistry{}
	handle, err := reg.Connect(dbCfg, log)
	if err != nil {
		return err
	}
	defer handle.Close()

	maps := mapping.NewRegistry()
	noteMap, err := mapping.For[*Note](maps)
	if err != nil {
		return err
	}

	store, err := openStore(noteMap, handle)
	if err != nil {
		return err
	}

	notes := silk.NewSet[*Note](noteMap, silk.SetOptions[*Note]{
		Reader:  store,
		Writer:  store,
		Indexes: store,
		Logger:  log,
		Validator: types.ValidatorFunc[*Note](func(n *Note) error {
			if n.Title == "" {
				return types.ValidationError{Entity: n, Rule: "title must not be empty"}
			}
			return nil
		}),
	})

	first := &Note{Title: "first", Body: "the first note", Author: "rose"}
	second := &Note{Title: "second", Body: "the second note", Author: "dave"}
	third := &Note{Title: "third", Body: "the third note", Author: "rose"}
	for _, n := range []*Note{first, second, third} {
		if err := notes.Add(n); err != nil {
			return err
		}
	}
	if err := notes.SaveChangesContext(ctx); err != nil {
		return err
	}
	fmt.Printf("inserted 3 notes; first got id %s\n", first.ID)

	// mutate directly; detection during the save picks it up
	second.Body = "the second note, revised"
	if err := notes.Delete(third); err != nil {
		return err
	}
	if err := notes.SaveChangesContext(ctx); err != nil {
		return err
	}
	fmt.Println("saved one detected update and one delete")

	// navigation over the author property
	byRose, err := notes.Navigation("author")
	if err != nil {
		return err
	}
	if err := byRose.AddForeignID("rose"); err != nil {
		return err
	}
	fmt.Printf("navigation holds %d member(s) before loading\n", byRose.Count())

	stream := byRose.Stream()
	defer stream.Close(ctx)
	for stream.Next(ctx) {
		n := stream.Entity()
		fmt.Printf("  - %s: %s\n", n.Title, n.Body)
	}
	if err := stream.Err(); err != nil {
		return err
	}

	return nil
}

// noteStore is the full storage surface silktest needs from a backend.
type noteStore interface {
	types.Reader[*Note]
	types.Writer[*Note]
	types.IndexWriter
}

// openStore builds the Note store appropriate to the kind of connection the
// registry opened.
func openStore(noteMap *mapping.Map[*Note], handle db.Handle) (noteStore, error) {
	switch h := handle.(type) {
	case inmem.Handle:
		return inmem.NewStore[*Note](noteMap), nil
	case *sqlite.Handle:
		return sqlite.NewStoreOnDB[*Note](noteMap, h.DB, "notes")
	case *mongodb.Handle:
		return mongodb.NewStore[*Note](noteMap, h.DB, "notes"), nil
	default:
		return nil, fmt.Errorf("unsupported connection type %T", handle)
	}
}
