package scene

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/signalsfoundry/radioplanner/core"
)

// Binary scene file layout, all big endian:
//
//	magic "RPSC", version uint16
//	configuration block (fixed field order)
//	buildings  (count + rect each)
//	emitters   (count + antenna tag, efficiency, EIRP, frequency,
//	            rotation, position each)
//	receivers  (count + antenna tag, efficiency, position each)
//
// No run-scoped data is persisted. Writing the same scene twice
// produces byte-identical output.
const (
	fileMagic   = "RPSC"
	fileVersion = uint16(1)
)

// Save serializes the scene.
func Save(w io.Writer, s *Scene) error {
	if _, err := io.WriteString(w, fileMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, fileVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	if err := writeConfig(w, s.Config); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(s.buildings))); err != nil {
		return fmt.Errorf("write building count: %w", err)
	}
	for _, b := range s.buildings {
		if err := binary.Write(w, binary.BigEndian, [4]float64{b.Rect.X, b.Rect.Y, b.Rect.Width, b.Rect.Height}); err != nil {
			return fmt.Errorf("write building: %w", err)
		}
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(s.emitters))); err != nil {
		return fmt.Errorf("write emitter count: %w", err)
	}
	for _, e := range s.emitters {
		if err := binary.Write(w, binary.BigEndian, int32(e.Antenna().Type())); err != nil {
			return fmt.Errorf("write emitter antenna: %w", err)
		}
		fields := [6]float64{
			e.Efficiency(),
			e.EIRP(),
			e.Frequency(),
			e.Rotation(),
			e.Position().X,
			e.Position().Y,
		}
		if err := binary.Write(w, binary.BigEndian, fields); err != nil {
			return fmt.Errorf("write emitter: %w", err)
		}
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(s.receivers))); err != nil {
		return fmt.Errorf("write receiver count: %w", err)
	}
	for _, r := range s.receivers {
		if err := binary.Write(w, binary.BigEndian, int32(r.Antenna().Type())); err != nil {
			return fmt.Errorf("write receiver antenna: %w", err)
		}
		fields := [3]float64{
			r.Antenna().Efficiency(),
			r.Position().X,
			r.Position().Y,
		}
		if err := binary.Write(w, binary.BigEndian, fields); err != nil {
			return fmt.Errorf("write receiver: %w", err)
		}
	}

	return nil
}

// Load deserializes a scene written by Save.
func Load(r io.Reader) (*Scene, error) {
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != fileMagic {
		return nil, fmt.Errorf("not a scene file (magic %q)", magic)
	}

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported scene file version %d", version)
	}

	s := New()

	cfg, err := readConfig(r)
	if err != nil {
		return nil, err
	}
	s.Config = cfg

	var buildingCount uint32
	if err := binary.Read(r, binary.BigEndian, &buildingCount); err != nil {
		return nil, fmt.Errorf("read building count: %w", err)
	}
	for i := uint32(0); i < buildingCount; i++ {
		var f [4]float64
		if err := binary.Read(r, binary.BigEndian, &f); err != nil {
			return nil, fmt.Errorf("read building %d: %w", i, err)
		}
		s.AttachBuilding(NewBuilding(f[0], f[1], f[2], f[3]))
	}

	var emitterCount uint32
	if err := binary.Read(r, binary.BigEndian, &emitterCount); err != nil {
		return nil, fmt.Errorf("read emitter count: %w", err)
	}
	for i := uint32(0); i < emitterCount; i++ {
		var tag int32
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("read emitter %d antenna: %w", i, err)
		}
		var f [6]float64
		if err := binary.Read(r, binary.BigEndian, &f); err != nil {
			return nil, fmt.Errorf("read emitter %d: %w", i, err)
		}
		e := core.NewEmitterWithAntenna(f[2], f[1], f[0], core.AntennaType(tag))
		e.SetRotation(f[3])
		e.SetPosition(core.Point{X: f[4], Y: f[5]})
		s.AttachEmitter(e)
	}

	var receiverCount uint32
	if err := binary.Read(r, binary.BigEndian, &receiverCount); err != nil {
		return nil, fmt.Errorf("read receiver count: %w", err)
	}
	for i := uint32(0); i < receiverCount; i++ {
		var tag int32
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("read receiver %d antenna: %w", i, err)
		}
		var f [3]float64
		if err := binary.Read(r, binary.BigEndian, &f); err != nil {
			return nil, fmt.Errorf("read receiver %d: %w", i, err)
		}
		rcv := core.NewReceiver(core.AntennaType(tag), f[0])
		rcv.SetPosition(core.Point{X: f[1], Y: f[2]})
		s.AttachReceiver(rcv)
	}

	return s, nil
}

func writeConfig(w io.Writer, cfg core.SimulationConfig) error {
	if err := binary.Write(w, binary.BigEndian, int32(cfg.MaxReflections)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	nlos := uint8(0)
	if cfg.NLOSReflectionsEnabled {
		nlos = 1
	}
	if err := binary.Write(w, binary.BigEndian, nlos); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fields := [8]float64{
		cfg.RelativePermittivity,
		cfg.SimulationHeight,
		cfg.Bandwidth,
		cfg.Temperature,
		cfg.NoiseFigure,
		cfg.TargetSNR,
		cfg.MinValidRadius,
		cfg.PruningRadius,
	}
	if err := binary.Write(w, binary.BigEndian, fields); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func readConfig(r io.Reader) (core.SimulationConfig, error) {
	cfg := core.DefaultConfig()

	var maxRefl int32
	if err := binary.Read(r, binary.BigEndian, &maxRefl); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	cfg.SetMaxReflections(int(maxRefl))

	var nlos uint8
	if err := binary.Read(r, binary.BigEndian, &nlos); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	cfg.NLOSReflectionsEnabled = nlos != 0

	var fields [8]float64
	if err := binary.Read(r, binary.BigEndian, &fields); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	cfg.RelativePermittivity = fields[0]
	cfg.SimulationHeight = fields[1]
	cfg.Bandwidth = fields[2]
	cfg.Temperature = fields[3]
	cfg.NoiseFigure = fields[4]
	cfg.TargetSNR = fields[5]
	cfg.MinValidRadius = fields[6]
	cfg.PruningRadius = fields[7]

	return cfg, nil
}
