package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/studio"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/version"
)

// Exit codes of the renderer: 0 success, 1 I/O or parse failure, 2 graph
// build failure, 3 a node faulted during the render.
const (
	exitOK = iota
	exitIO
	exitGraph
	exitFault
)

func main() {
	os.Exit(run())
}

func run() int {
	projectPath := flag.String("project", "", "Project file to render.")
	mixdown := flag.String("mixdown", "", "File to write the stereo mixdown to.")
	stemsDir := flag.String("stems-dir", "", "Directory to write one stem per track to. Created if needed.")
	duration := flag.Float64("duration", 0, "Length to render in seconds. Defaults to the project duration.")
	format := flag.String("format", "wav", "Output format: wav or flac.")
	dither := flag.Bool("dither", false, "Apply triangular dither before quantizing to 16 bits.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		return exitOK
	}
	if *projectPath == "" || *help {
		flag.Usage()
		return exitOK
	}
	if *format != "wav" && *format != "flac" {
		fmt.Fprintf(os.Stderr, "unknown format %q, expected wav or flac\n", *format)
		return exitIO
	}
	if *mixdown == "" && *stemsDir == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: give -mixdown and/or -stems-dir")
		return exitIO
	}

	project, err := studio.LoadProject(*projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load project %v: %v\n", *projectPath, err)
		return exitIO
	}
	frames := project.DurationFrames()
	if *duration > 0 {
		frames = uint64(*duration * project.SampleRate)
	}
	if frames == 0 {
		fmt.Fprintln(os.Stderr, "nothing to render: project duration is zero")
		return exitIO
	}

	if *mixdown != "" {
		buffer, code := renderPass(project, frames, nil)
		if code != exitOK {
			return code
		}
		if err := writeAudio(*mixdown, *format, buffer, project, *dither); err != nil {
			fmt.Fprintf(os.Stderr, "could not write mixdown: %v\n", err)
			return exitIO
		}
	}
	if *stemsDir != "" {
		if err := os.MkdirAll(*stemsDir, os.ModePerm); err != nil {
			fmt.Fprintf(os.Stderr, "could not create stems directory %v: %v\n", *stemsDir, err)
			return exitIO
		}
		for i := range project.Tracks {
			buffer, code := renderPass(project, frames, func(mixer *engine.Mixer) {
				for j := range project.Tracks {
					if j != i {
						mixer.SetGain(j, 0)
					}
				}
			})
			if code != exitOK {
				return code
			}
			name := stemFilename(i, project.Tracks[i].Name, *format)
			if err := writeAudio(filepath.Join(*stemsDir, name), *format, buffer, project, *dither); err != nil {
				fmt.Fprintf(os.Stderr, "could not write stem %v: %v\n", name, err)
				return exitIO
			}
		}
	}
	return exitOK
}

// renderPass compiles the project into a fresh graph and renders it with a
// synthetic clock, so every pass starts from identical node state. mute can
// adjust the mixer before rendering; used for soloing stems.
func renderPass(project *studio.Project, frames uint64, mute func(*engine.Mixer)) ([]float32, int) {
	graph, mixer, err := project.BuildGraph()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build the project graph: %v\n", err)
		return nil, exitGraph
	}
	if mute != nil {
		mute(mixer)
	}
	tempo, err := project.TempoMap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid tempo map: %v\n", err)
		return nil, exitIO
	}
	sampleRate := int(project.SampleRate)
	executor := engine.NewExecutor(graph)
	if err := executor.Prepare(sampleRate, project.BlockSize, project.Channels); err != nil {
		fmt.Fprintf(os.Stderr, "could not prepare the graph: %v\n", err)
		return nil, exitGraph
	}
	automation := engine.NewAutomation(1024)
	if err := project.ApplyAutomation(automation); err != nil {
		fmt.Fprintf(os.Stderr, "could not apply automation: %v\n", err)
		return nil, exitIO
	}

	buffer := make([]float32, 0, frames*uint64(project.Channels))
	block := make([]float32, project.BlockSize*project.Channels)
	var pos uint64
	for pos < frames {
		snap := harmoniq.TransportSnapshot{SamplePos: pos, Playing: true, Tempo: tempo}
		updates := automation.RenderBlock(pos, project.BlockSize)
		if err := executor.Process(block, snap, updates, nil); err != nil {
			fmt.Fprintf(os.Stderr, "render failed at sample %d: %v\n", pos, err)
			return nil, exitFault
		}
		if faults := executor.Faults(); len(faults) > 0 {
			for _, f := range faults {
				fmt.Fprintf(os.Stderr, "node %d faulted at sample %d: %v\n", f.Node, pos, f.Reason)
			}
			return nil, exitFault
		}
		n := uint64(project.BlockSize)
		if remain := frames - pos; remain < n {
			n = remain
		}
		buffer = append(buffer, block[:n*uint64(project.Channels)]...)
		pos += uint64(project.BlockSize)
	}
	return buffer, exitOK
}

func stemFilename(index int, name, format string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "track"
	}
	return fmt.Sprintf("%02d-%s.%s", index, name, format)
}

func writeAudio(path, format string, buffer []float32, project *studio.Project, dither bool) error {
	if dither {
		applyDither(buffer)
	}
	switch format {
	case "wav":
		data, err := harmoniq.Wav(buffer, true, int(project.SampleRate), project.Channels)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	case "flac":
		return writeFlac(path, buffer, int(project.SampleRate), project.Channels)
	}
	return fmt.Errorf("unknown format %q", format)
}

// applyDither adds triangular noise of one quantization step so that the
// 16-bit truncation error decorrelates from the signal.
func applyDither(buffer []float32) {
	const lsb = 1.0 / 32768
	seed := uint32(0x5EED)
	next := func() float32 {
		seed = seed*1664525 + 1013904223
		return float32(seed>>8) / float32(1<<24)
	}
	for i := range buffer {
		buffer[i] += (next() + next() - 1) * lsb
	}
}

const flacFrameSize = 4096

func writeFlac(path string, buffer []float32, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	nframes := len(buffer) / channels
	info := &meta.StreamInfo{
		BlockSizeMin:  flacFrameSize,
		BlockSizeMax:  flacFrameSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: 16,
		NSamples:      uint64(nframes),
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		return err
	}
	defer enc.Close()
	frameChannels := frame.ChannelsMono
	if channels == 2 {
		frameChannels = frame.ChannelsLR
	}
	for start := 0; start < nframes; start += flacFrameSize {
		n := nframes - start
		if n > flacFrameSize {
			n = flacFrameSize
		}
		fr := &frame.Frame{Header: frame.Header{
			BlockSize:     uint16(n),
			SampleRate:    uint32(sampleRate),
			Channels:      frameChannels,
			BitsPerSample: 16,
		}}
		for c := 0; c < channels; c++ {
			sub := &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				NSamples:  n,
			}
			sub.Samples = make([]int32, n)
			for i := 0; i < n; i++ {
				sub.Samples[i] = quantize16(buffer[(start+i)*channels+c])
			}
			fr.Subframes = append(fr.Subframes, sub)
		}
		if err := enc.WriteFrame(fr); err != nil {
			return err
		}
	}
	return nil
}

func quantize16(v float32) int32 {
	s := int32(v * 32767)
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return s
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Render a Harmoniq project offline to a mixdown and/or stems.\nUsage: %s -project file.json [-mixdown out.wav] [-stems-dir stems/] [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
