package publish

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/geom"
)

func testTransforms(n int) []geom.Mat4 {
	out := make([]geom.Mat4, n)
	for i := range out {
		f := float32(i)
		q := geom.Quat{X: 0.1 * f, Y: 1 - 0.05*f, Z: 0.3, W: 1}.Normalize()
		out[i] = geom.Compose(geom.V3(f, -2*f, 0.5*f+1), q)
	}
	return out
}

func TestNewBackends(t *testing.T) {
	for _, name := range []string{BackendMatrices, BackendPacked, BackendEntities} {
		p, err := New(name, 4, 0)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("Name() = %q, want %q", p.Name(), name)
		}
		if err := p.Publish(testTransforms(4), geom.V3(1, 2, 3)); err != nil {
			t.Errorf("%s: Publish: %v", name, err)
		}
		if err := p.Publish(testTransforms(3), geom.Vec3{}); !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("%s: Publish with wrong size = %v, want ErrSizeMismatch", name, err)
		}
		if err := p.Close(); err != nil {
			t.Errorf("%s: Close: %v", name, err)
		}
	}

	if _, err := New("raytraced", 4, 0); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("New(raytraced) = %v, want ErrUnknownBackend", err)
	}
}

func TestMatricesBatches(t *testing.T) {
	tests := []struct {
		count, batch int
		want         []int
	}{
		{count: 2500, batch: 1023, want: []int{1023, 1023, 454}},
		{count: 2500, batch: 0, want: []int{1023, 1023, 454}},
		{count: 2500, batch: 5000, want: []int{1023, 1023, 454}},
		{count: 10, batch: 4, want: []int{4, 4, 2}},
		{count: 1023, batch: 1023, want: []int{1023}},
		{count: 0, batch: 8, want: nil},
	}
	for _, tt := range tests {
		p := NewMatrices(tt.count, tt.batch)
		got := p.Batches()
		if len(got) != len(tt.want) {
			t.Errorf("count=%d batch=%d: %d batches, want %d", tt.count, tt.batch, len(got), len(tt.want))
			continue
		}
		for i, b := range got {
			if len(b) != tt.want[i]*floatsPerMatrix {
				t.Errorf("count=%d batch=%d: batch %d has %d floats, want %d",
					tt.count, tt.batch, i, len(b), tt.want[i]*floatsPerMatrix)
			}
		}
	}
}

func TestMatricesPublishCopies(t *testing.T) {
	current := testTransforms(5)
	p := NewMatrices(len(current), 2)
	if err := p.Publish(current, geom.V3(4, 5, 6)); err != nil {
		t.Fatal(err)
	}

	for i := range current {
		m := p.Matrix(i)
		if m != current[i] {
			t.Errorf("Matrix(%d) = %v, want %v", i, m, current[i])
		}
	}
	if p.Center() != geom.V3(4, 5, 6) {
		t.Errorf("Center() = %v", p.Center())
	}

	// Later writes to the source must not reach the published copy.
	current[0][12] = 999
	if p.Matrix(0)[12] == 999 {
		t.Error("publish aliased the source buffer")
	}
	// Batches view the same storage as Data.
	if &p.Batches()[1][0] != &p.Data()[2*floatsPerMatrix] {
		t.Error("second batch does not start at agent 2")
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	current := testTransforms(16)
	buf := NewPackedBuffer(len(current))
	if err := Pack(buf, current); err != nil {
		t.Fatal(err)
	}

	got := make([]geom.Mat4, len(current))
	if err := Unpack(buf, got); err != nil {
		t.Fatal(err)
	}
	for i := range current {
		if !got[i].ApproxEqual(&current[i], 1e-6) {
			t.Errorf("agent %d: unpacked %v, want %v", i, got[i], current[i])
		}
	}
}

func TestPackInverseBlocks(t *testing.T) {
	identity := geom.Identity()
	scaled := geom.Compose(geom.V3(3, 1, -2), geom.IdentityQuat())
	scaled[0], scaled[5], scaled[10] = 2, 0.5, 4

	current := append(testTransforms(8), scaled)
	buf := NewPackedBuffer(len(current))
	if err := Pack(buf, current); err != nil {
		t.Fatal(err)
	}

	for i := range current {
		inv := unpackRows(buf.WorldToObject[i*PackedStride : (i+1)*PackedStride])
		prod := geom.Mul(&inv, &current[i])
		if !prod.ApproxEqual(&identity, 1e-4) {
			t.Errorf("agent %d: worldToObject * objectToWorld = %v, want identity", i, prod)
		}
	}
}

func TestPackSingularFails(t *testing.T) {
	current := testTransforms(2)
	current[1] = geom.Mat4{} // no rotation or scale at all
	current[1][15] = 1

	err := Pack(NewPackedBuffer(2), current)
	if err == nil {
		t.Fatal("expected an error packing a singular transform")
	}
}

func TestPackSingularKeepsPreviousFrame(t *testing.T) {
	buf := NewPackedBuffer(3)
	if err := Pack(buf, testTransforms(3)); err != nil {
		t.Fatal(err)
	}
	before := buf.Bytes()

	// Agents 0 and 1 are valid and differ from the packed frame; agent 2
	// cannot be inverted.
	next := testTransforms(4)[1:]
	next[2] = geom.Mat4{}
	next[2][15] = 1

	if err := Pack(buf, next); err == nil {
		t.Fatal("expected an error packing a singular transform")
	}
	if !bytes.Equal(buf.Bytes(), before) {
		t.Error("failed Pack modified the buffer")
	}
}

func TestInverseGeneralMatchesRigid(t *testing.T) {
	for i, m := range testTransforms(10) {
		rigid := geom.InverseRigid(&m)
		general, err := InverseGeneral(&m)
		if err != nil {
			t.Fatalf("agent %d: %v", i, err)
		}
		if !general.ApproxEqual(&rigid, 1e-4) {
			t.Errorf("agent %d: general inverse %v, rigid inverse %v", i, general, rigid)
		}
	}
}

func TestPackedAppendBytes(t *testing.T) {
	current := testTransforms(3)
	buf := NewPackedBuffer(len(current))
	if err := Pack(buf, current); err != nil {
		t.Fatal(err)
	}

	b := buf.Bytes()
	if want := 2 * len(current) * PackedStride * 4; len(b) != want {
		t.Fatalf("len = %d, want %d", len(b), want)
	}

	// Row 0, column 3 of agent 1 is its x translation.
	off := (1*PackedStride + 3) * 4
	x := math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
	if x != current[1][12] {
		t.Errorf("decoded x = %v, want %v", x, current[1][12])
	}

	// Inverse blocks follow the forward blocks.
	off = (len(current)*PackedStride + 0) * 4
	v := math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
	if v != buf.WorldToObject[0] {
		t.Errorf("first inverse float = %v, want %v", v, buf.WorldToObject[0])
	}

	prefix := []byte{1, 2}
	if got := buf.AppendBytes(prefix); len(got) != len(b)+2 || got[0] != 1 {
		t.Error("AppendBytes did not preserve the prefix")
	}
}

func TestEntitiesPublish(t *testing.T) {
	current := testTransforms(20)
	p := NewEntities(len(current))
	if p.Len() != len(current) {
		t.Fatalf("Len() = %d, want %d", p.Len(), len(current))
	}
	if err := p.Publish(current, geom.V3(1, 1, 1)); err != nil {
		t.Fatal(err)
	}

	for i := range current {
		tr := p.Transform(i)
		if tr.Matrix != current[i] {
			t.Errorf("agent %d: matrix not published", i)
		}
		if tr.Position != geom.Position(&current[i]) {
			t.Errorf("agent %d: cached position %v, want %v", i, tr.Position, geom.Position(&current[i]))
		}
	}

	seen := make(map[int]bool)
	p.Each(func(agent int, tr *components.Transform) {
		seen[agent] = true
		if tr.Forward != geom.Forward(&current[agent]) {
			t.Errorf("agent %d: cached forward mismatch", agent)
		}
	})
	if len(seen) != len(current) {
		t.Errorf("Each visited %d agents, want %d", len(seen), len(current))
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 {
		t.Errorf("Len() after Close = %d", p.Len())
	}
}
