// Tarn heap tool - inspect heap images, exercise the runtime heap, and
// manage the snapshot store.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/tarnlang/tarn/manifest"
	"github.com/tarnlang/tarn/vm"

	_ "github.com/tliron/commonlog/simple"
)

const historyFile = ".tarn_history"

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive heap inspector")
	configDir := flag.String("config", "", "Directory containing tarn.toml")
	storePath := flag.String("store", "", "Snapshot store path (overrides tarn.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tarn [options] [image-file]\n\n")
		fmt.Fprintf(os.Stderr, "Loads a Tarn heap image and prints its contents.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tarn app.image         # Summarize an image\n")
		fmt.Fprintf(os.Stderr, "  tarn -v app.image      # Include disassembly\n")
		fmt.Fprintf(os.Stderr, "  tarn -i                # Interactive inspector\n")
	}
	flag.Parse()

	m := loadManifest(*configDir)
	if *storePath != "" {
		m.Store.Path = *storePath
	}

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	if m.Heap.LogStats && verbosity < 2 {
		// Collector stats are logged at debug level.
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	cfg := vm.HeapConfig{
		InitialGCThreshold: uint64(m.Heap.InitialGCThreshold),
		GrowthFactor:       m.Heap.GrowthFactor,
		Stress:             m.Heap.StressGC,
	}
	heap := vm.NewHeapWithConfig(cfg)

	if *interactive {
		runInspector(heap, m)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := summarizeImage(heap, flag.Arg(0), *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadManifest(dir string) *manifest.Manifest {
	if dir == "" {
		dir = "."
	}
	m, err := manifest.Load(dir)
	if err != nil {
		return manifest.Default()
	}
	return m
}

// summarizeImage loads an image file and prints its contents.
func summarizeImage(heap *vm.Heap, path string, verbose bool) error {
	img, err := heap.LoadImageFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d strings, %d functions, %d classes\n",
		path, len(img.Strings), len(img.Functions), len(img.Classes))

	for _, fn := range img.Functions {
		fmt.Printf("  %s arity=%d upvalues=%d code=%dB constants=%d\n",
			vm.ObjectString(fn), fn.Arity(), fn.UpvalueCount(),
			fn.Chunk().Len(), len(fn.Chunk().Constants))
		if verbose {
			fmt.Print(fn.Chunk().Disassemble(vm.ObjectString(fn)))
		}
	}
	for _, class := range img.Classes {
		fmt.Printf("  class %s: %d methods\n", vm.ObjectString(class), class.Methods().Len())
	}
	if img.Entry != nil {
		fmt.Printf("  entry: %s\n", vm.ObjectString(img.Entry))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Interactive inspector
// ---------------------------------------------------------------------------

const inspectorHelp = `Commands:
  :intern TEXT     Intern TEXT and pin it
  :class NAME      Create a class and pin it
  :new NAME        Instantiate a pinned class
  :strings         Count interned strings
  :pins            Show pinned values
  :unpin N         Drop pin N (its object becomes collectable)
  :gc              Run a collection cycle
  :stats           Heap statistics
  :dump [FILE]     Write pinned strings/classes/functions as an image
  :save NAME FILE  Store an image file in the snapshot store
  :list            List stored snapshots
  :quit            Exit
`

func runInspector(heap *vm.Heap, m *manifest.Manifest) {
	collector := vm.NewCollector(heap)
	pins := vm.NewValueStack()
	collector.AddStackRoots(pins)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("Tarn heap inspector. :help for commands, :quit to exit.")
	for {
		line, err := ln.Prompt("tarn> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if line == ":quit" || line == ":q" {
			return
		}
		dispatch(heap, collector, pins, m, line)
	}
}

func dispatch(heap *vm.Heap, collector *vm.Collector, pins *vm.ValueStack, m *manifest.Manifest, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case ":help", ":h":
		fmt.Print(inspectorHelp)

	case ":intern":
		if len(args) == 0 {
			fmt.Println("usage: :intern TEXT")
			return
		}
		s := heap.InternString(strings.Join(args, " "))
		slot := pins.Push(s.Value())
		fmt.Printf("pin %d: %q (hash %08x)\n", slot, s.String(), s.Hash())

	case ":class":
		if len(args) != 1 {
			fmt.Println("usage: :class NAME")
			return
		}
		class := heap.NewClass(heap.InternString(args[0]))
		slot := pins.Push(class.Value())
		fmt.Printf("pin %d: %s\n", slot, vm.ObjectString(class))

	case ":new":
		if len(args) != 1 {
			fmt.Println("usage: :new NAME")
			return
		}
		class := findPinnedClass(heap, pins, args[0])
		if class == nil {
			fmt.Printf("no pinned class named %s\n", args[0])
			return
		}
		inst := heap.NewInstance(class)
		slot := pins.Push(inst.Value())
		fmt.Printf("pin %d: %s\n", slot, vm.ObjectString(inst))

	case ":strings":
		fmt.Printf("%d interned strings\n", heap.InternedStrings())

	case ":pins":
		for i := 0; i < pins.Len(); i++ {
			fmt.Printf("pin %d: %s\n", i, heap.ValueString(pins.At(i)))
		}

	case ":unpin":
		if len(args) != 1 {
			fmt.Println("usage: :unpin N")
			return
		}
		var n int
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n < 0 || n >= pins.Len() {
			fmt.Println("no such pin")
			return
		}
		pins.SetAt(n, vm.Nil)

	case ":gc":
		stats := collector.Collect()
		fmt.Printf("cycle %d: marked %d, swept %d, %d -> %d bytes in %s\n",
			stats.Cycle, stats.Marked, stats.Swept,
			stats.BytesBefore, stats.BytesAfter, stats.Duration)

	case ":stats":
		fmt.Printf("live objects:     %d\n", heap.LiveObjects())
		fmt.Printf("interned strings: %d\n", heap.InternedStrings())
		fmt.Printf("open upvalues:    %d\n", heap.OpenUpvalueCount())
		fmt.Printf("bytes allocated:  %d\n", heap.BytesAllocated())
		fmt.Printf("next gc at:       %d\n", heap.NextGC())

	case ":dump":
		path := m.ImagePath()
		if len(args) == 1 {
			path = args[0]
		}
		dumpImage(heap, pins, path)

	case ":save":
		if len(args) != 2 {
			fmt.Println("usage: :save NAME FILE")
			return
		}
		saveSnapshot(m, args[0], args[1])

	case ":list":
		listSnapshots(m)

	default:
		fmt.Printf("unknown command %s (:help for commands)\n", cmd)
	}
}

func findPinnedClass(heap *vm.Heap, pins *vm.ValueStack, name string) *vm.ObjClass {
	for i := 0; i < pins.Len(); i++ {
		v := pins.At(i)
		if heap.Is(v, vm.TypeClass) {
			class := heap.AsClass(v)
			if class.Name().String() == name {
				return class
			}
		}
	}
	return nil
}

// dumpImage serializes every pinned serializable object into an image file.
func dumpImage(heap *vm.Heap, pins *vm.ValueStack, path string) {
	w := vm.NewImageWriter(heap)
	var err error
	pins.ForEach(func(v vm.Value) {
		if err != nil {
			return
		}
		switch o := heap.Object(v).(type) {
		case *vm.ObjString:
			w.AddString(o)
		case *vm.ObjClass:
			err = w.AddClass(o)
		case *vm.ObjFunction:
			_, err = w.AddFunction(o)
		}
	})
	if err != nil {
		fmt.Printf("dump: %v\n", err)
		return
	}
	if err := w.WriteFile(path); err != nil {
		fmt.Printf("dump: %v\n", err)
		return
	}
	fmt.Printf("wrote %s\n", path)
}

func saveSnapshot(m *manifest.Manifest, name, file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Printf("read %s: %v\n", file, err)
		return
	}
	store, err := vm.OpenSnapshotStore(m.StorePath())
	if err != nil {
		fmt.Printf("open store: %v\n", err)
		return
	}
	defer store.Close()
	hash, err := store.Save(name, data)
	if err != nil {
		fmt.Printf("save: %v\n", err)
		return
	}
	fmt.Printf("saved %s as %s\n", name, hash[:12])
}

func listSnapshots(m *manifest.Manifest) {
	store, err := vm.OpenSnapshotStore(m.StorePath())
	if err != nil {
		fmt.Printf("open store: %v\n", err)
		return
	}
	defer store.Close()
	infos, err := store.List()
	if err != nil {
		fmt.Printf("list: %v\n", err)
		return
	}
	if len(infos) == 0 {
		fmt.Println("no snapshots")
		return
	}
	for _, info := range infos {
		fmt.Printf("%s  %-20s %8dB  %s\n",
			info.Hash[:12], info.Name, info.Size,
			info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}
