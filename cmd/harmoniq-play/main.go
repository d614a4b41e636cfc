package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/midi"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/oto"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/portaudio"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/studio"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/studio/gomidi"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/version"
)

func main() {
	backend := flag.String("backend", "", "Audio backend to use: oto or portaudio. Defaults to the configured one.")
	midiIn := flag.String("midi-in", "", "Open the first MIDI input whose name starts with this prefix.")
	firstMIDI := flag.Bool("first-midi", false, "Open the first available MIDI input.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}

	config, err := studio.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load configuration: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		config.Backend = *backend
	}
	if *midiIn != "" {
		config.MIDIInputPrefix = *midiIn
	}

	project, err := studio.LoadProject(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load project %v: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	sampleRate := int(project.SampleRate)
	graph, mixer, err := project.BuildGraph()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build the project graph: %v\n", err)
		os.Exit(1)
	}
	tempo, err := project.TempoMap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid tempo map: %v\n", err)
		os.Exit(1)
	}

	broker := studio.NewBroker()
	player, err := studio.NewPlayer(broker, sampleRate, project.BlockSize, project.Channels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create player: %v\n", err)
		os.Exit(1)
	}
	player.Priority = config.RealtimePriority

	dispatcher := midi.NewDispatcher(sampleRate, config.MIDIMode(), 1024)
	player.SetDispatcher(dispatcher)
	midiContext := gomidi.NewContext(dispatcher)
	defer midiContext.Close()
	if err := midiContext.TryToOpenBy(config.MIDIInputPrefix, *firstMIDI); err != nil {
		log.Printf("MIDI input unavailable: %v", err)
	}

	if err := project.ApplyAutomation(player.Automation()); err != nil {
		fmt.Fprintf(os.Stderr, "could not apply automation: %v\n", err)
		os.Exit(1)
	}
	if err := player.InstallGraph(graph, mixer); err != nil {
		fmt.Fprintf(os.Stderr, "could not install the project graph: %v\n", err)
		os.Exit(1)
	}
	studio.TrySend[any](broker.ToPlayer, tempo)
	if project.Loop != nil && project.Loop.Enabled {
		studio.TrySend[any](broker.ToPlayer, studio.LoopMsg{Start: project.Loop.Start, End: project.Loop.End, Enabled: true})
	}
	studio.TrySend[any](broker.ToPlayer, studio.StartPlayMsg{})

	sink, closeBackend, err := openBackend(config, player, sampleRate, project.BlockSize, project.Channels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open audio backend %v: %v\n", config.Backend, err)
		os.Exit(1)
	}
	defer closeBackend()

	go player.Run(sink)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case msg := <-broker.ToModel:
			if alert, ok := msg.Data.(studio.Alert); ok {
				log.Printf("[%v] %v", alert.Name, alert.Message)
			}
		case <-interrupt:
			studio.TrySend(broker.ClosePlayer, struct{}{})
			select {
			case <-broker.FinishedPlayer:
			case <-time.After(3 * time.Second):
				log.Print("player did not shut down in time")
			}
			sink.Close()
			return
		}
	}
}

func openBackend(config studio.Config, player *studio.Player, sampleRate, blockSize, channels int) (harmoniq.AudioSink, func(), error) {
	switch config.Backend {
	case "", "oto":
		ctx, err := oto.NewContext(sampleRate, channels, player.Metrics())
		if err != nil {
			return nil, nil, err
		}
		sink, err := ctx.Output()
		if err != nil {
			return nil, nil, err
		}
		return sink, func() { ctx.Close() }, nil
	case "portaudio":
		ctx, err := portaudio.NewContext(sampleRate, channels, blockSize)
		if err != nil {
			return nil, nil, err
		}
		sink, err := ctx.Output()
		if err != nil {
			ctx.Close()
			return nil, nil, err
		}
		return sink, func() { ctx.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", config.Backend)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Play a Harmoniq project file through the audio device.\nUsage: %s [flags] project.json\n", os.Args[0])
	flag.PrintDefaults()
}
