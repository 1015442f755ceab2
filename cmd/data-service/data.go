package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/data-service/pkg/client"
	"github.com/Sternrassler/data-service/pkg/dataset"
)

func urlFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "url",
		Usage:   "data service base URL",
		Sources: sources("client.url", "DATA_SERVICE_URL"),
		Value:   "http://localhost:3000",
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the dataset, a collection or one entry",
		UsageText: "data-service get [people|cars|animals [id...]]",
		Flags:     []cli.Flag{urlFlag()},
		Action:    getAction,
	}
}

func putCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "replace the dataset with a JSON document",
		UsageText: "data-service put [file|-]",
		Flags:     []cli.Flag{urlFlag()},
		Action:    putAction,
	}
}

func newClient(cmd *cli.Command) (*client.Client, error) {
	return client.New(client.DefaultConfig(cmd.String("url")))
}

func getAction(ctx context.Context, cmd *cli.Command) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.Root().Writer
	args := cmd.Args().Slice()

	if len(args) == 0 {
		resp, err := c.GetData(ctx)
		if errors.Is(err, client.ErrCacheEmpty) {
			fmt.Fprintln(out, `{"message":"cache empty"}`)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(resp.Body))
		return nil
	}

	coll, err := dataset.ParseCollection(args[0])
	if err != nil {
		return err
	}

	if len(args) == 1 {
		raw, err := c.Collection(ctx, coll)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(raw))
		return nil
	}

	ids := make([]int, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}

	if len(ids) == 1 {
		raw, err := c.Entry(ctx, coll, ids[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(raw))
		return nil
	}

	result, err := c.FetchEntries(ctx, coll, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if raw, ok := result.Entries[id]; ok {
			fmt.Fprintln(out, string(raw))
		}
	}
	if len(result.Missing) > 0 {
		return fmt.Errorf("%s not found: %v", coll.Noun(), result.Missing)
	}
	return nil
}

func putAction(ctx context.Context, cmd *cli.Command) error {
	var (
		body []byte
		err  error
	)
	switch path := cmd.Args().First(); path {
	case "", "-":
		body, err = io.ReadAll(cmd.Root().Reader)
	default:
		body, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.PutRaw(ctx, body); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, `{"message":"success"}`)
	return nil
}
