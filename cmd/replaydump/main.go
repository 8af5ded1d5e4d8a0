package main

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/crypto/sha3"
	"gopkg.in/urfave/cli.v1"

	"nitro-core-dx/internal/emulator"
	"nitro-core-dx/internal/hooks"
	"nitro-core-dx/internal/replay"
	"nitro-core-dx/internal/replayer"
)

var remoteFlag = cli.BoolFlag{
	Name:  "remote",
	Usage: "view the replay from the opposite side",
}

func main() {
	app := cli.NewApp()
	app.Name = "replaydump"
	app.Usage = "inspect an archived match"
	app.Flags = []cli.Flag{remoteFlag}
	app.Commands = []cli.Command{
		videoCommand,
		ewramCommand,
		textCommand,
		hashCommand,
		evalCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "replaydump:", err)
		os.Exit(1)
	}
}

func loadReplay(ctx *cli.Context) (*replay.Replay, error) {
	// The replay path is the last positional argument of every subcommand.
	path := ctx.Args().Get(len(ctx.Args()) - 1)
	if path == "" {
		return nil, fmt.Errorf("missing <replay-path>")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()

	r, err := replay.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}
	if globalRemote(ctx) {
		r = r.IntoRemote()
	}
	return r, nil
}

// globalRemote reads --remote off either the command's own flag set or
// its parent app's, since urfave/cli.v1 scopes global flags to the app
// context rather than each subcommand's context.
func globalRemote(ctx *cli.Context) bool {
	if ctx.Bool("remote") {
		return true
	}
	return ctx.GlobalBool("remote")
}

var videoCommand = cli.Command{
	Name:      "video",
	Usage:     "render a replay to a video file via ffmpeg",
	ArgsUsage: "<rom> <out> <replay-path>",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "assume-incomplete"},
		cli.StringFlag{Name: "ffmpeg", Value: "ffmpeg"},
		cli.StringFlag{Name: "ffmpeg-audio-flags"},
		cli.StringFlag{Name: "ffmpeg-video-flags"},
		cli.StringFlag{Name: "ffmpeg-mux-flags"},
	},
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if len(args) < 3 {
			return fmt.Errorf("usage: video <rom> <out> <replay-path>")
		}
		romPath, outPath := args[0], args[1]

		romData, err := os.ReadFile(romPath)
		if err != nil {
			return fmt.Errorf("read rom: %w", err)
		}
		r, err := loadReplay(ctx)
		if err != nil {
			return err
		}
		if ctx.Bool("assume-incomplete") {
			r.IsComplete = false
		}

		h, ok := lookupHooksForROM(romData)
		if !ok {
			return fmt.Errorf("no hook catalogue entry for this ROM")
		}

		e := emulator.NewEmulator()
		if err := e.LoadROM(romData); err != nil {
			return fmt.Errorf("load rom: %w", err)
		}
		rp, err := replayer.New(e, h, r)
		if err != nil {
			return fmt.Errorf("build replayer: %w", err)
		}

		ffmpegArgs := []string{"-y", "-f", "rawvideo", "-pix_fmt", "rgba", "-i", "-"}
		ffmpegArgs = append(ffmpegArgs, splitFlags(ctx.String("ffmpeg-video-flags"))...)
		ffmpegArgs = append(ffmpegArgs, splitFlags(ctx.String("ffmpeg-audio-flags"))...)
		ffmpegArgs = append(ffmpegArgs, splitFlags(ctx.String("ffmpeg-mux-flags"))...)
		ffmpegArgs = append(ffmpegArgs, outPath)
		cmd := exec.Command(ctx.String("ffmpeg"), ffmpegArgs...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("ffmpeg stdin pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start ffmpeg: %w", err)
		}

		for {
			if err := e.RunFrame(); err != nil {
				break
			}
			frame := e.GetOutputBuffer()
			for _, px := range frame {
				var rgba [4]byte
				rgba[0] = byte(px >> 24)
				rgba[1] = byte(px >> 16)
				rgba[2] = byte(px >> 8)
				rgba[3] = byte(px)
				stdin.Write(rgba[:])
			}
			if rp.State.Done() {
				break
			}
		}
		stdin.Close()
		return cmd.Wait()
	},
}

func splitFlags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

var ewramCommand = cli.Command{
	Name:      "ewram",
	Usage:     "write the replay's archived WRAM to stdout",
	ArgsUsage: "<replay-path>",
	Action: func(ctx *cli.Context) error {
		r, err := loadReplay(ctx)
		if err != nil {
			return err
		}
		var state emulator.SaveState
		if err := gob.NewDecoder(bytes.NewReader(r.LocalState)).Decode(&state); err != nil {
			return fmt.Errorf("decode archived state: %w", err)
		}
		_, err = os.Stdout.Write(state.MemoryState.WRAM[:])
		return err
	},
}

var textCommand = cli.Command{
	Name:      "text",
	Usage:     "dump a human-readable record listing",
	ArgsUsage: "<replay-path>",
	Action: func(ctx *cli.Context) error {
		r, err := loadReplay(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("local_player_index=%d is_complete=%v records=%d\n", r.LocalPlayerIndex, r.IsComplete, len(r.Records))
		for i, rec := range r.Records {
			fmt.Printf("%6d: local_tick=%d remote_tick=%d joyflags_local=%#04x joyflags_remote=%#04x rx_local=%d bytes rx_remote=%d bytes\n",
				i, rec.LocalTick, rec.RemoteTick, rec.JoyflagsLocal, rec.JoyflagsRemote, len(rec.RXLocal), len(rec.RXRemote))
		}
		return nil
	},
}

var hashCommand = cli.Command{
	Name:      "hash",
	Usage:     "print the SHA3-256 of the XOR'd RX streams",
	ArgsUsage: "<replay-path>",
	Action: func(ctx *cli.Context) error {
		r, err := loadReplay(ctx)
		if err != nil {
			return err
		}
		sum := sha3.Sum256(r.XORHashInput())
		fmt.Println(hex.EncodeToString(sum[:]))
		return nil
	},
}

type evalResult struct {
	LocalPlayerIndex uint8                `json:"local_player_index"`
	Result           replayer.RoundResult `json:"result"`
}

var evalCommand = cli.Command{
	Name:      "eval",
	Usage:     "run a replay to completion and report its outcome as JSON",
	ArgsUsage: "<rom> <replay-path>",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if len(args) < 2 {
			return fmt.Errorf("usage: eval <rom> <replay-path>")
		}
		romData, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read rom: %w", err)
		}
		r, err := loadReplay(ctx)
		if err != nil {
			return err
		}

		h, ok := lookupHooksForROM(romData)
		if !ok {
			return fmt.Errorf("no hook catalogue entry for this ROM")
		}

		e := emulator.NewEmulator()
		if err := e.LoadROM(romData); err != nil {
			return fmt.Errorf("load rom: %w", err)
		}
		rp, err := replayer.New(e, h, r)
		if err != nil {
			return fmt.Errorf("build replayer: %w", err)
		}
		result, err := rp.Run()
		if err != nil {
			return fmt.Errorf("run replay: %w", err)
		}

		out := evalResult{LocalPlayerIndex: r.LocalPlayerIndex, Result: result}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	},
}

func lookupHooksForROM(romData []byte) (hooks.Hooks, bool) {
	e := emulator.NewEmulator()
	if err := e.LoadROM(romData); err != nil {
		return nil, false
	}
	return hooks.Lookup(e.GameTitle())
}
