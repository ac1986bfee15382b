// Package logbook persists finished dives to disk and implements
// sampler.Store. Each dive is a fixed little-endian header followed by
// the packed sample stream (time u16, depth i16, temperature i16, gas
// u8, deco_time u8, cns u8, events u16 = 10 bytes/sample). Shearwater-
// style XML logs can be imported alongside natively recorded dives.
package logbook

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/scriner2110/decobrain/sampler"
)

// ErrStorageFault marks a failed persistence write. The caller keeps the
// in-memory profile; the dive is never discarded. No alarm is raised on
// this error.
var ErrStorageFault = errors.New("logbook: storage fault")

// FileStore persists dive profiles as one binary file per dive under dir.
type FileStore struct {
	dir string
}

// New returns a FileStore writing/reading dive files under dir, creating
// dir if it does not already exist.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logbook: creating %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) pathFor(diveNumber uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("dive-%06d.dat", diveNumber))
}

// SaveDive implements sampler.Store, writing p's packed header and
// sample stream to dir/dive-NNNNNN.dat.
func (s *FileStore) SaveDive(p *sampler.Profile) error {
	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("logbook: encoding dive %d: %w", p.DiveNumber, err)
	}
	if err := os.WriteFile(s.pathFor(p.DiveNumber), data, 0o644); err != nil {
		return fmt.Errorf("%w: writing dive %d: %v", ErrStorageFault, p.DiveNumber, err)
	}
	return nil
}

// LoadDive reads back a previously saved dive.
func (s *FileStore) LoadDive(diveNumber uint32) (*sampler.Profile, error) {
	data, err := os.ReadFile(s.pathFor(diveNumber))
	if err != nil {
		return nil, fmt.Errorf("logbook: reading dive %d: %w", diveNumber, err)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("logbook: decoding dive %d: %w", diveNumber, err)
	}
	return p, nil
}

// Encode packs a dive profile into the fixed header plus little-endian
// sample stream, the same layout the device writes to flash.
func Encode(p *sampler.Profile) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeader(&buf, p); err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(p.Samples))); err != nil {
		return nil, fmt.Errorf("encoding sample count: %w", err)
	}
	for _, sm := range p.Samples {
		if err := writeSample(&buf, sm); err != nil {
			return nil, fmt.Errorf("encoding sample: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*sampler.Profile, error) {
	r := bytes.NewReader(data)

	p, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}

	var numSamples uint16
	if err := binary.Read(r, binary.LittleEndian, &numSamples); err != nil {
		return nil, fmt.Errorf("decoding sample count: %w", err)
	}
	p.Samples = make([]sampler.Sample, numSamples)
	for i := range p.Samples {
		sm, err := readSample(r)
		if err != nil {
			return nil, fmt.Errorf("decoding sample %d: %w", i, err)
		}
		p.Samples[i] = sm
	}
	return p, nil
}

// Summary renders a one-line human-readable description of a dive, the
// text a logbook browser displays per entry.
func Summary(p *sampler.Profile) string {
	return fmt.Sprintf("dive #%d [%s]: %.1fm max / %.1fm avg, %ds, CNS %.0f%%, OTU %.0f, %d violations",
		p.DiveNumber, p.SessionID, p.MaxDepth, p.AvgDepth, p.DurationSeconds, p.MaxCNS, p.MaxOTU, p.DecoViolations)
}

// ListDives returns the dive numbers present in the store, ascending.
func (s *FileStore) ListDives() ([]uint32, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("logbook: listing %s: %w", s.dir, err)
	}

	var numbers []uint32
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "dive-") || !strings.HasSuffix(name, ".dat") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(name, "dive-"), ".dat")
		n, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil {
			continue
		}
		numbers = append(numbers, uint32(n))
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers, nil
}

// sessionIDLen is the on-disk width of Profile.SessionID, a standard
// 36-character UUID string (8-4-4-4-12 hex with hyphens).
const sessionIDLen = 36

func writeHeader(w *bytes.Buffer, p *sampler.Profile) error {
	var sessionID [sessionIDLen]byte
	copy(sessionID[:], p.SessionID)

	fields := []any{
		p.DiveNumber,
		sessionID,
		p.StartTimestamp,
		p.EndTimestamp,
		p.MaxDepth,
		p.AvgDepth,
		p.DurationSeconds,
		p.MinTemperature,
		p.SurfaceIntervalMin,
		p.DecoViolations,
		p.MaxDecoTime,
		p.MaxGF,
		p.MaxCNS,
		p.MaxOTU,
		p.GasesUsed,
		p.SACRate,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func readHeader(r *bytes.Reader) (*sampler.Profile, error) {
	p := &sampler.Profile{}
	var sessionID [sessionIDLen]byte
	fields := []any{
		&p.DiveNumber,
		&sessionID,
		&p.StartTimestamp,
		&p.EndTimestamp,
		&p.MaxDepth,
		&p.AvgDepth,
		&p.DurationSeconds,
		&p.MinTemperature,
		&p.SurfaceIntervalMin,
		&p.DecoViolations,
		&p.MaxDecoTime,
		&p.MaxGF,
		&p.MaxCNS,
		&p.MaxOTU,
		&p.GasesUsed,
		&p.SACRate,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, err
		}
	}
	p.SessionID = strings.TrimRight(string(sessionID[:]), "\x00")
	return p, nil
}

func writeSample(w *bytes.Buffer, sm sampler.Sample) error {
	fields := []any{sm.TimeSeconds, sm.DepthCM, sm.TemperatureDeciC, sm.GasIndex, sm.DecoTimeMinutes, sm.CNSPercent, sm.Events}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func readSample(r *bytes.Reader) (sampler.Sample, error) {
	var sm sampler.Sample
	fields := []any{&sm.TimeSeconds, &sm.DepthCM, &sm.TemperatureDeciC, &sm.GasIndex, &sm.DecoTimeMinutes, &sm.CNSPercent, &sm.Events}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return sampler.Sample{}, err
		}
	}
	return sm, nil
}

// --- Third-party XML import ---

// swLogRecord mirrors a Shearwater-style diveLogRecord entry.
type swLogRecord struct {
	XMLName     xml.Name `xml:"diveLogRecord"`
	Time        int      `xml:"currentTime"`
	Depth       float64  `xml:"currentDepth"`
	AveragePPO2 float64  `xml:"averagePPO2"`
	FractionO2  float64  `xml:"fractionO2"`
}

type swLogRecords struct {
	XMLName       xml.Name      `xml:"diveLogRecords"`
	DiveLogRecord []swLogRecord `xml:"diveLogRecord"`
}

type swLog struct {
	XMLName        xml.Name     `xml:"diveLog"`
	Number         int          `xml:"number"`
	MaxDepth       int          `xml:"maxDepth"`
	MaxTime        int          `xml:"maxTime"`
	DiveLogRecords swLogRecords `xml:"diveLogRecords"`
}

type swDive struct {
	XMLName xml.Name `xml:"dive"`
	DiveLog swLog    `xml:"diveLog"`
}

// ImportShearwaterXML reads a Shearwater-style XML dive log and
// converts it into a sampler.Profile, one sample per diveLogRecord
// stamped with that record's currentTime (records are not resampled to
// a fixed cadence), so an externally logged dive can be stored alongside
// natively recorded ones.
func ImportShearwaterXML(path string) (*sampler.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logbook: opening %s: %w", path, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(bufio.NewReader(f))
	var dive swDive
	if err := dec.Decode(&dive); err != nil {
		return nil, fmt.Errorf("logbook: decoding %s: %w", path, err)
	}

	p := &sampler.Profile{
		DiveNumber: uint32(dive.DiveLog.Number),
		SessionID:  uuid.NewString(),
	}
	for _, rec := range dive.DiveLog.DiveLogRecords.DiveLogRecord {
		if rec.Depth > p.MaxDepth {
			p.MaxDepth = rec.Depth
		}
		p.Samples = append(p.Samples, sampler.Sample{
			TimeSeconds: uint16(rec.Time),
			DepthCM:     int16(rec.Depth * 100),
		})
	}
	if n := len(p.Samples); n > 0 {
		p.DurationSeconds = uint32(p.Samples[n-1].TimeSeconds)
	}
	return p, nil
}
