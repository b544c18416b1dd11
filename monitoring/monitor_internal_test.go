package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/iopmpsim/sim"
)

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *sampleComponent) NotifyRecv(_ sim.Port) {}

func (c *sampleComponent) NotifyPortFree(_ sim.Port) {}

func newSampleComponent(name string) *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase(name),
		buffer:        sim.NewBuffer(name+".Buf", 4),
	}

	c.AddPort("Top", sim.NewPort(c, 2, 2, name+".TopPort"))

	return c
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		comp   *sampleComponent
		router http.Handler
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		m.RegisterEngine(sim.NewSerialEngine())

		comp = newSampleComponent("IOPMP")
		m.RegisterComponent(comp)

		router = m.router()
	})

	It("should register components and their buffers", func() {
		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))
	})

	It("should list the components", func() {
		rec := get("/api/list_components")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`["IOPMP"]`))
	})

	It("should not find an unknown component", func() {
		rec := get("/api/component/RAM")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should report the time", func() {
		rec := get("/api/now")

		Expect(rec.Body.String()).To(Equal(`{"now":0.0000000000}`))
	})

	It("should list the fullest buffers first", func() {
		comp.buffer.Push(1)
		comp.buffer.Push(2)

		rec := get("/api/hangdetector/buffers?limit=1")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var infos []bufferInfo
		Expect(json.Unmarshal(rec.Body.Bytes(), &infos)).To(Succeed())
		Expect(infos).To(Equal([]bufferInfo{{"IOPMP.Buf", 2, 4}}))
	})

	It("should select buffers past the end as none", func() {
		Expect(m.sortAndSelectBuffers("level", 2, 10)).To(BeEmpty())
		Expect(m.sortAndSelectBuffers("level", 0, 1)).To(HaveLen(2))
	})

	It("should reject an unknown sort method", func() {
		rec := get("/api/hangdetector/buffers?sort=name")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should serve registered statuses", func() {
		m.RegisterStatus("interrupt", func() any { return true })

		Expect(get("/api/status/interrupt").Body.String()).To(Equal("true"))
		Expect(get("/api/status/report").Code).To(Equal(http.StatusNotFound))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("scenarios", 2)
		bar.Start(2)
		bar.Finish(1)

		rec := get("/api/progress")

		var bars []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("scenarios"))
		Expect(bars[0]["finished"]).To(BeEquivalentTo(1))
		Expect(bar.Done()).To(BeFalse())

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should not finish more than is in progress", func() {
		bar := m.CreateProgressBar("scenarios", 2)
		bar.Start(1)
		bar.Finish(3)

		Expect(bar.Finished).To(Equal(uint64(1)))
		Expect(bar.InProgress).To(Equal(uint64(0)))
	})

	It("should pause and continue the engine", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
	})
})
