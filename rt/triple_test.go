package rt_test

import (
	"sync"
	"testing"

	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

func TestTripleReadBeforeWrite(t *testing.T) {
	tr := rt.NewTriple[int]()
	if v := tr.Read(); v != 0 {
		t.Fatalf("got %v, expected the zero value", v)
	}
}

func TestTripleLatestWins(t *testing.T) {
	tr := rt.NewTriple[int]()
	tr.Write(1)
	tr.Write(2)
	tr.Write(3)
	if v := tr.Read(); v != 3 {
		t.Fatalf("got %v, expected the latest write 3", v)
	}
}

func TestTripleRepeatedReads(t *testing.T) {
	tr := rt.NewTriple[int]()
	tr.Write(7)
	if v := tr.Read(); v != 7 {
		t.Fatalf("got %v, expected 7", v)
	}
	// nothing new published, the same snapshot comes back
	if v := tr.Read(); v != 7 {
		t.Fatalf("got %v, expected 7 again", v)
	}
	tr.Write(8)
	if v := tr.Read(); v != 8 {
		t.Fatalf("got %v, expected 8", v)
	}
}

// pair is published as a whole; a torn read would show mismatched halves.
type pair struct{ a, b uint64 }

func TestTripleNoTornReads(t *testing.T) {
	tr := rt.NewTriple[pair]()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			tr.Write(pair{a: i, b: i})
		}
	}()
	for i := 0; i < 100000; i++ {
		p := tr.Read()
		if p.a != p.b {
			t.Errorf("torn read: %+v", p)
			break
		}
	}
	close(stop)
	wg.Wait()
}
