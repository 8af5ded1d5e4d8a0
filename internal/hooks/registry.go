package hooks

// Registry maps a ROM's internal title string (Cartridge.GameTitle) to
// the Hooks implementation that knows its trap addresses and memory map.
// A deployment onboards a new ROM revision by adding one Offsets value
// here; nothing else in the netplay core changes.
var Registry = map[string]Hooks{}

// Register adds a hook set to the Registry under its own Offsets.GameTitle.
// Packages that ship a concrete hook set call this from an init function.
func Register(h Hooks) {
	Registry[h.Offsets().GameTitle] = h
}

// Lookup returns the hook set registered for a ROM title, and whether one
// was found.
func Lookup(gameTitle string) (Hooks, bool) {
	h, ok := Registry[gameTitle]
	return h, ok
}

func init() {
	Register(NewStandardHooks(exampleOffsetsRevisionA))
	Register(NewStandardHooks(exampleOffsetsRevisionB))
}

// exampleOffsetsRevisionA and exampleOffsetsRevisionB are placeholder
// address tables for two ROM revisions of one title. Real deployments
// replace these with the addresses recovered for their own ROM dumps;
// the values below exist only so the registry and trap-building code
// have something concrete to exercise in tests.
var exampleOffsetsRevisionA = Offsets{
	GameTitle: "EXAMPLE_REV_AXX",
	Traps: TrapAddrs{
		StartScreenSkip:               Addr{Bank: 0x08, Offset: 0x0010},
		TitleMenuContinue:             Addr{Bank: 0x08, Offset: 0x0020},
		OverworldCommMenuOpen:         Addr{Bank: 0x08, Offset: 0x0030},
		CommMenuInitReturn:            Addr{Bank: 0x08, Offset: 0x0040},
		LinkCableInitSIOCall:          Addr{Bank: 0x08, Offset: 0x0050},
		MainReadJoyflags:              Addr{Bank: 0x08, Offset: 0x0060},
		HandleInputSendAndReceiveCall: Addr{Bank: 0x08, Offset: 0x0070},
		CopyInputDataEntry:            Addr{Bank: 0x08, Offset: 0x0080},
		BattleIsP2:                    Addr{Bank: 0x08, Offset: 0x0090},
		LinkIsP2:                      Addr{Bank: 0x08, Offset: 0x00A0},
		RoundStartRet:                 Addr{Bank: 0x08, Offset: 0x00B0},
		RoundEndEntry:                 Addr{Bank: 0x08, Offset: 0x00C0},
		RoundRunUnpausedStepCmpRetval: Addr{Bank: 0x08, Offset: 0x00D0},
		HandleInputPostCall:           Addr{Bank: 0x08, Offset: 0x00E0},
		CommMenuInitBattleEntry:       Addr{Bank: 0x08, Offset: 0x00F0},
		OpponentName:                  Addr{Bank: 0x02, Offset: 0x1000},
	},
	Mem: MemoryMap{
		RNG1State:          Addr{Bank: 0x02, Offset: 0x2000},
		RNG2State:          Addr{Bank: 0x02, Offset: 0x2004},
		RXSlot:             [2]Addr{{Bank: 0x02, Offset: 0x2100}, {Bank: 0x02, Offset: 0x2140}},
		TXSlot:             Addr{Bank: 0x02, Offset: 0x2180},
		IsLinkingFlag:      Addr{Bank: 0x02, Offset: 0x21C0},
		BattleSettingsFlag: Addr{Bank: 0x02, Offset: 0x21C4},
		CurrentTick:        Addr{Bank: 0x02, Offset: 0x21C8},
		PacketSize:         0x10,
	},
}

var exampleOffsetsRevisionB = Offsets{
	GameTitle: "EXAMPLE_REV_BXX",
	Traps:     exampleOffsetsRevisionA.Traps,
	Mem:       exampleOffsetsRevisionA.Mem,
}
