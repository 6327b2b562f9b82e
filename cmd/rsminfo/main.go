// rsminfo is a CLI utility for inspecting RSM models and animation clips
// and the GRF archives that carry them.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Faultbox/castleview/internal/loader"
	"github.com/Faultbox/castleview/pkg/formats"
	"github.com/Faultbox/castleview/pkg/grf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "nodes", "tree":
		err = cmdNodes(args)
	case "clip":
		err = cmdClip(args)
	case "strip":
		err = cmdStrip(args)
	case "ls":
		err = cmdList(args)
	case "pack":
		err = cmdPack(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rsminfo - RSM model and clip utility

Usage:
  rsminfo <command> [options]

Commands:
  info <file.rsm>              Show header, counts and animation length
  nodes <file.rsm>             Print the node hierarchy
  clip <file.rsm>              Print the animation tracks as the viewer sees them
  strip <in.rsm> <out.rsm>     Write a clip-only copy without geometry
  ls <file.grf> [filter]       List archive entries with their sizes
  pack <out.grf> <dir>         Pack a directory into a GRF archive under data/

Examples:
  rsminfo info "models/Mutant.rsm"
  rsminfo clip "models/Old Man Idle.rsm"
  rsminfo strip models/Idle.rsm models/Idle.clip.rsm
  rsminfo pack castle.grf assets`)
}

func open(args []string, usage string) (*formats.RSM, string, error) {
	if len(args) < 1 {
		return nil, "", fmt.Errorf("usage: rsminfo %s", usage)
	}
	rsm, err := formats.ParseRSMFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return rsm, args[0], nil
}

func cmdInfo(args []string) error {
	rsm, path, err := open(args, "info <file.rsm>")
	if err != nil {
		return err
	}
	st, err := os.Stat(path)
	if err != nil {
		return err
	}

	fmt.Printf("File:       %s (%s)\n", path, humanize.IBytes(uint64(st.Size())))
	fmt.Printf("Version:    %s\n", rsm.Version)
	fmt.Printf("Root:       %s\n", rsm.RootNode)
	fmt.Printf("Shading:    %s\n", rsm.Shading)
	fmt.Printf("Nodes:      %d\n", len(rsm.Nodes))
	fmt.Printf("Vertices:   %s\n", humanize.Comma(int64(rsm.TotalVertexCount())))
	fmt.Printf("Faces:      %s\n", humanize.Comma(int64(rsm.TotalFaceCount())))
	fmt.Printf("Textures:   %d\n", len(rsm.Textures))
	for _, t := range rsm.Textures {
		fmt.Printf("  %s\n", t)
	}
	if rsm.HasAnimation() {
		fmt.Printf("Animation:  %d ms\n", rsm.AnimLength)
	} else {
		fmt.Println("Animation:  none")
	}
	return nil
}

func cmdNodes(args []string) error {
	rsm, _, err := open(args, "nodes <file.rsm>")
	if err != nil {
		return err
	}
	printed := make(map[string]bool, len(rsm.Nodes))
	var walk func(n *formats.RSMNode, depth int)
	walk = func(n *formats.RSMNode, depth int) {
		if printed[n.Name] {
			return
		}
		printed[n.Name] = true
		fmt.Printf("%s%s  verts=%d faces=%d keys=%d/%d/%d\n",
			strings.Repeat("  ", depth), n.Name,
			len(n.Vertices), len(n.Faces),
			len(n.PosKeys), len(n.RotKeys), len(n.ScaleKeys))
		for _, c := range rsm.Children(n.Name) {
			walk(c, depth+1)
		}
	}
	for i := range rsm.Nodes {
		if rsm.Nodes[i].IsRoot() {
			walk(&rsm.Nodes[i], 0)
		}
	}
	for i := range rsm.Nodes {
		if !printed[rsm.Nodes[i].Name] {
			fmt.Printf("(orphan) %s parent=%q\n", rsm.Nodes[i].Name, rsm.Nodes[i].Parent)
		}
	}
	return nil
}

func cmdClip(args []string) error {
	rsm, path, err := open(args, "clip <file.rsm>")
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	clip := loader.RSMClip(name, rsm)
	if clip == nil || len(clip.Tracks) == 0 {
		fmt.Printf("%s: no animation\n", path)
		return nil
	}

	fmt.Printf("Clip %q  duration %.3fs  tracks %d\n", clip.Name, clip.Duration, len(clip.Tracks))
	for _, t := range clip.Tracks {
		fmt.Printf("  %-24s pos=%d rot=%d scale=%d\n", t.Node, len(t.Position), len(t.Rotation), len(t.Scale))
	}
	return nil
}

func cmdStrip(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: rsminfo strip <in.rsm> <out.rsm>")
	}
	rsm, _, err := open(args, "strip <in.rsm> <out.rsm>")
	if err != nil {
		return err
	}
	if !rsm.HasAnimation() {
		return fmt.Errorf("%s has no animation", args[0])
	}

	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		n.Vertices = nil
		n.TexCoords = nil
		n.Faces = nil
		n.TextureIDs = nil
	}
	rsm.Textures = nil
	rsm.VolumeBoxes = nil

	data, err := rsm.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s)\n", args[1], humanize.IBytes(uint64(len(data))))
	return nil
}

func cmdList(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: rsminfo ls <file.grf> [filter]")
	}
	archive, err := grf.Open(args[0])
	if err != nil {
		return err
	}
	defer archive.Close()

	filter := ""
	if len(args) > 1 {
		filter = strings.ToLower(args[1])
	}

	var total uint64
	count := 0
	for _, name := range archive.List() {
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		e, _ := archive.Stat(name)
		fmt.Printf("%10s  %s\n", humanize.IBytes(uint64(e.UncompressedSize)), name)
		total += uint64(e.UncompressedSize)
		count++
	}
	fmt.Printf("%s files, %s\n", humanize.Comma(int64(count)), humanize.IBytes(total))
	return nil
}

func cmdPack(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: rsminfo pack <out.grf> <dir>")
	}
	out, dir := args[0], args[1]

	b := grf.NewBuilder()
	err := fs.WalkDir(os.DirFS(dir), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(p)))
		if err != nil {
			return err
		}
		b.Add("data/"+p, data)
		return nil
	})
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	n, err := b.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("Packed %d files into %s (%s)\n", b.Len(), out, humanize.IBytes(uint64(n)))
	return nil
}
