package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbaxter/joybeat/constants"
	"github.com/mbaxter/joybeat/joycon"
	"github.com/mbaxter/joybeat/library"
	"github.com/mbaxter/joybeat/merge"
	"github.com/mbaxter/joybeat/midi"
	"github.com/mbaxter/joybeat/model"
	"github.com/mbaxter/joybeat/playback"
	"github.com/mbaxter/joybeat/score"
	"github.com/mbaxter/joybeat/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <file|s3://bucket/key>",
	Short: "Play a MIDI file on connected controllers",
	Long:  `Play a MIDI file on connected controllers`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(args[0])
	},
}

func play(src string) error {
	path, cleanup, err := library.Resolve(src)
	if err != nil {
		return err
	}
	defer cleanup()

	// parse before touching hardware so a bad file never rumbles anything
	song, err := midi.ReadFile(path)
	if err != nil {
		var perr *midi.ParseError
		if errors.As(err, &perr) {
			return fmt.Errorf("%v is not playable: %v", src, perr.Kind)
		}
		return err
	}

	metrics := score.AnalyzeAll(song)
	picks := merge.SelectChannels(metrics)
	fmt.Printf("Parsed %v tracks, %v notes\n", len(song.Tracks), song.TotalNotes())
	for _, m := range metrics {
		marker := " "
		if m.TrackNum == picks[0] || m.TrackNum == picks[1] {
			marker = "*"
		}
		fmt.Printf("%s track %2d [%v] score=%.3f notes=%d\n",
			marker, m.TrackNum, m.Type, m.Score(), m.NoteCount)
	}
	streams := merge.BuildStreams(song, picks)

	manager, err := joycon.NewManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	controllers, err := manager.ConnectAndInitialize()
	if err != nil {
		return err
	}
	if len(controllers) == 0 {
		return fmt.Errorf("no controllers found")
	}
	defer func() {
		for _, c := range controllers {
			c.Close()
		}
	}()

	var sessions [model.NumChannels]playback.Session
	for i := 0; i < util.Min(len(controllers), model.NumChannels); i++ {
		sessions[i] = controllers[i]
		fmt.Printf("channel %d: %v at %v\n", i, controllers[i].Type(), controllers[i].Identity().Path)
	}

	sched := playback.New(streams, sessions, playback.Options{
		PollInterval: constants.GetPollInterval(),
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nstopping...")
		sched.Stop()
	}()

	go logEvents(sched)

	if err := sched.Start(); err != nil {
		return err
	}
	fmt.Printf("playback %v started\n", sched.ID())
	sched.Wait()
	fmt.Println("playback finished")
	return nil
}

func logEvents(sched *playback.Scheduler) {
	for ev := range sched.Events() {
		switch ev.Kind {
		case playback.EventStateChanged:
			fmt.Printf("state: %v\n", ev.State)
		case playback.EventTimingFault:
			fmt.Printf("timing: channel %d behind by %v\n", ev.Channel, ev.Lag)
		case playback.EventDeviceError:
			fmt.Printf("device error on channel %d: %v\n", ev.Channel, ev.Err)
		case playback.EventFinished:
			fmt.Println("all streams complete")
		}
	}
}
