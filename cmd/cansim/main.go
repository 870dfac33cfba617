package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/olofolivecrona/cansim"
)

func main() {
	configPath := flag.String("config", "", "path to cansim.toml (defaults apply when empty)")
	noTrace := flag.Bool("no-trace", false, "suppress the per-bit bus trace")
	flag.Parse()

	cfg := defaultRuntimeConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadRuntimeConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cansim: %v\n", err)
			os.Exit(1)
		}
	}
	if *noTrace {
		cfg.Trace = false
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cansim: unknown log level %q\n", cfg.LogLevel)
		os.Exit(1)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)

	busCfg := cansim.Config{
		BitTime:      cfg.BitTime,
		PollInterval: cfg.PollInterval,
		StopTimeout:  cfg.StopTimeout,
		Logger:       logger,
		LogOpts:      cansim.LogAll,
	}
	if cfg.Trace {
		busCfg.Trace = func(n int, lvl cansim.Level) {
			fmt.Printf("  bit %03d: %d => %s\n", n, lvl, lvl)
		}
	}

	bus := cansim.New(busCfg)
	bus.Start()
	defer bus.Stop()

	fmt.Println("CAN Bus Simulator")
	printHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[BUS %s] > ", bus.LevelName())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(cmd) {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "status":
			fmt.Printf("Current bus state: %s\n", bus.LevelName())
		case "interpret":
			interpret(bus.History(), rest)
		case "send":
			send(bus, rest)
		case "sendfile":
			sendFile(bus, rest)
		default:
			fmt.Println("Unknown command. Type 'help' to see available commands.")
		}
	}
}

func printHelp() {
	fmt.Print(
		"Commands:\n" +
			"  send ID#DATA          Send a CAN frame (hex), e.g. send 123#DEADBEEF\n" +
			"  sendfile PATH [ID]    Send an Intel HEX image as frames (default ID 123)\n" +
			"  interpret [ID]        Decode and list messages seen on the bus\n" +
			"  status                Show current bus voltage level (HIGH/LOW)\n" +
			"  help                  Show this help\n" +
			"  quit                  Exit\n",
	)
}

func send(bus *cansim.Bus, descriptor string) {
	frame, err := cansim.ParseFrame(descriptor)
	if err != nil {
		fmt.Printf("Invalid frame: %v\n", err)
		return
	}
	bus.Enqueue(frame)
	fmt.Println("Frame queued for transmission.")
}

func sendFile(bus *cansim.Bus, args string) {
	path, idPart, _ := strings.Cut(args, " ")
	if path == "" {
		fmt.Println("Usage: sendfile PATH [hexID]")
		return
	}
	var id uint32 = 0x123
	if idPart = strings.TrimSpace(idPart); idPart != "" {
		v, err := strconv.ParseUint(idPart, 16, 32)
		if err != nil {
			fmt.Printf("Invalid identifier %q\n", idPart)
			return
		}
		id = uint32(v)
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Cannot open image: %v\n", err)
		return
	}
	defer f.Close()
	frames, err := cansim.FramesFromIntelHex(f, id)
	if err != nil {
		fmt.Printf("Invalid image: %v\n", err)
		return
	}
	for _, frame := range frames {
		bus.Enqueue(frame)
	}
	fmt.Printf("%d frames queued for transmission.\n", len(frames))
}

func interpret(frames []cansim.Frame, idPart string) {
	var filter cansim.FrameFilter
	if idPart != "" {
		v, err := strconv.ParseUint(idPart, 16, 32)
		if err != nil {
			fmt.Printf("Invalid identifier %q\n", idPart)
			return
		}
		filter = cansim.ByID(uint32(v))
	}
	shown := 0
	for _, frame := range frames {
		if filter != nil && !filter(frame) {
			continue
		}
		shown++
		if shown == 1 {
			fmt.Println("Decoded bus messages:")
		}
		fmt.Printf("  %03d. %s | %s | %s\n",
			shown,
			frame.Timestamp.Format("15:04:05"),
			frame.Summary(),
			cansim.DecodePayload(frame.Data[:frame.Len]),
		)
	}
	if shown == 0 {
		fmt.Println("No messages received on the bus yet.")
	}
}
