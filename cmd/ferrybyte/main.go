package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/jaywantadh/FerryByte/config"
	"github.com/jaywantadh/FerryByte/internal/history"
	"github.com/jaywantadh/FerryByte/internal/transfer"
	"github.com/jaywantadh/FerryByte/pkg/env"
	"github.com/jaywantadh/FerryByte/pkg/logging"
)

func main() {
	env.LoadEnv()
	config.LoadConfig(".")
	logging.InitLogger(config.Config.Debug)

	app := &cli.App{
		Name:  "FerryByte",
		Usage: "Reliable chunked file transfer over TCP",
		Commands: []*cli.Command{
			serveCommand(),
			sendCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Receive files into the configured directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: config.Config.Host, Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Value: config.Config.Port, Usage: "Port to listen on"},
			&cli.StringFlag{Name: "receive-dir", Value: config.Config.ReceiveDir, Usage: "Directory to save received files"},
		},
		Action: func(c *cli.Context) error {
			store, err := history.Open(config.Config.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := transfer.NewServer(c.String("host"), c.Int("port"), c.String("receive-dir"))
			srv.History = store

			go func() {
				for ev := range srv.Events {
					switch ev.Kind {
					case transfer.EventReceived:
						logging.Log.Infof("📥 %s saved to %s (%s)", ev.FileName, ev.Path, transfer.FormatBytes(ev.Bytes))
					case transfer.EventFailed:
						logging.Log.Warnf("❌ Transfer of %q failed: %s", ev.FileName, ev.Error)
					}
				}
			}()

			logging.Log.Info("🚀 FerryByte server started")
			return srv.Start()
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send one or more files to a peer",
		ArgsUsage: "FILE [FILE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: config.Config.Host, Usage: "Peer address"},
			&cli.IntFlag{Name: "port", Value: config.Config.Port, Usage: "Peer port"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("no files to send")
			}

			store, err := history.Open(config.Config.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			failed := 0
			for _, path := range c.Args().Slice() {
				if err := sendOne(c.String("host"), c.Int("port"), path, store); err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, c.NArg())
			}
			return nil
		},
	}
}

func sendOne(host string, port int, path string, store *history.Store) error {
	started := time.Now()

	var tracker *transfer.Tracker
	results := transfer.SendFiles(host, port, []string{path}, func(done, total int64) {
		if tracker == nil {
			tracker = transfer.NewTracker(path, total)
		}
		tracker.Update(done)
		_, speed, eta := tracker.Snapshot()
		fmt.Printf("\r%s: %s/%s (%s/s, ETA %s)   ", path,
			transfer.FormatBytes(done), transfer.FormatBytes(total),
			transfer.FormatBytes(int64(speed)), transfer.FormatDuration(eta))
	})
	fmt.Println()

	res := results[0]
	rec := history.Record{
		ID:         uuid.New().String(),
		FileName:   res.Name,
		Path:       res.Path,
		Direction:  history.DirectionSent,
		Peer:       net.JoinHostPort(host, strconv.Itoa(port)),
		Bytes:      res.Bytes,
		Total:      res.Total,
		Status:     history.StatusCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if res.Err != nil {
		rec.Status = history.StatusFailed
		rec.Error = res.Err.Error()
		logging.Log.Errorf("❌ Failed to send %s: %v", path, res.Err)
	} else {
		logging.Log.Infof("✅ Sent %s (%s)", res.Name, transfer.FormatBytes(res.Bytes))
	}

	if err := store.Put(rec); err != nil {
		logging.Log.Warnf("failed to record transfer history: %v", err)
	}
	return res.Err
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past transfers",
		Action: func(c *cli.Context) error {
			store, err := history.Open(config.Config.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No transfers recorded")
				return nil
			}

			for _, rec := range records {
				line := fmt.Sprintf("%s  %-8s  %-9s  %s (%s)",
					rec.FinishedAt.Format("2006-01-02 15:04:05"),
					rec.Direction, rec.Status, rec.FileName,
					transfer.FormatBytes(rec.Bytes))
				if rec.Error != "" {
					line += "  (" + rec.Error + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
