package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"WorldCore/world"
)

// create_room converts a yaml room description into the binary .room
// format the server loads, or dumps a .room file back to yaml.
//
//	go run tools/create_room.go -in crypt.yaml -out assets/rooms/0_0_-1.room
//	go run tools/create_room.go -dump assets/rooms/0_0_-1.room
func main() {
	in := flag.String("in", "", "yaml room to convert")
	out := flag.String("out", "", "where to write the .room file")
	dump := flag.String("dump", "", ".room file to print as yaml")
	flag.Parse()

	var err error
	switch {
	case *dump != "":
		err = dumpRoom(*dump)
	case *in != "" && *out != "":
		err = convertRoom(*in, *out)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convertRoom(in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	t, err := world.DecodeRoomYAML(data)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	return os.WriteFile(out, world.EncodeRoomBlob(t), 0o644)
}

func dumpRoom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	t, err := world.DecodeRoomBlob(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	// The most common tile becomes the fill, the rest are listed.
	var counts [256]int
	for _, tile := range t.Tiles {
		counts[tile]++
	}
	doc := world.RoomYAML{Class: t.Class, Entities: t.Entities}
	for tile, n := range counts {
		if n > counts[doc.Fill] {
			doc.Fill = world.TileType(tile)
		}
	}
	for i, tile := range t.Tiles {
		if tile != doc.Fill {
			doc.Tiles = append(doc.Tiles, world.TilePatch{
				X:    uint8(i % world.RoomWidth),
				Y:    uint8(i / world.RoomWidth),
				Tile: tile,
			})
		}
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(&doc)
}
