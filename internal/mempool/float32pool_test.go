package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	assert.Equal(t, 1024, sizeClass(0))
	assert.Equal(t, 1024, sizeClass(1))
	assert.Equal(t, 1024, sizeClass(1024))
	assert.Equal(t, 2048, sizeClass(1025))
	assert.Equal(t, 2048, sizeClass(1500))
	assert.Equal(t, 10240, sizeClass(10000))
}

func TestGetPutFloat32(t *testing.T) {
	buf := GetFloat32(500)
	require.Len(t, buf, 500)
	require.GreaterOrEqual(t, cap(buf), 1024)
	for i := range buf {
		buf[i] = float32(i)
	}
	PutFloat32(buf)
	PutFloat32(nil)

	again := GetFloat32(500)
	assert.Len(t, again, 500)
	PutFloat32(again)
}

func TestGetBoolZeroed(t *testing.T) {
	buf := GetBool(256)
	require.Len(t, buf, 256)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	again := GetBool(256)
	for i, v := range again {
		require.False(t, v, "index %d not cleared", i)
	}
	PutBool(again)
	PutBool(nil)
}

func TestEdgeExtractionBufferCycle(t *testing.T) {
	// mimic the detector's buffer flow for a 640x480 frame
	const n = 640 * 480
	for range 50 {
		gray := GetFloat32(n)
		for i := range gray {
			gray[i] = float32(i%256) / 255.0
		}
		mag := GetFloat32(n)
		for i := range mag {
			mag[i] = gray[i] * 0.5
		}
		mask := GetBool(n)
		for i := range mag {
			if mag[i] > 0.25 {
				mask[i] = true
			}
		}
		PutBool(mask)
		PutFloat32(mag)
		PutFloat32(gray)
	}
}

func TestPoolConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				f := GetFloat32(2000)
				b := GetBool(2000)
				f[0] = 1
				b[0] = true
				PutFloat32(f)
				PutBool(b)
			}
		}()
	}
	wg.Wait()
}
