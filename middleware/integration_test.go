// Copyright 2025 The Ctxlog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/valyala/fastjson"

	"ctxlog.dev/ctxlog/kafka"
	"ctxlog.dev/ctxlog/logging"
	"ctxlog.dev/ctxlog/middleware"
)

var _ = Describe("Middleware to Kafka", func() {
	var (
		client    *kafka.FakeClient
		transport *kafka.Transport
		sink      *logging.RecordingSink
		logger    *logging.Logger
		handler   http.Handler
	)

	BeforeEach(func(ctx SpecContext) {
		client = &kafka.FakeClient{}
		var err error
		transport, err = kafka.New(client, kafka.Options{
			Brokers:       []string{"localhost:9092"},
			Topic:         "service-logs",
			FlushInterval: time.Hour,
			BatchSize:     1000,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(transport.Init(ctx)).To(Succeed())

		sink = &logging.RecordingSink{}
		logger = logging.MustNew(logging.WithSink(sink), logging.WithServiceName("orders"))
		Expect(logger.AttachForwarder(transport)).To(BeNil())

		mux := http.NewServeMux()
		mux.HandleFunc("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
			logging.FromContext(r.Context()).Info("loading order", logging.Fields{"order": r.PathValue("id")})
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("/boom", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		handler = middleware.New(logger, middleware.WithIDGenerator(middleware.ULID))(mux)

		DeferCleanup(func(ctx SpecContext) {
			Expect(logger.Close(ctx)).To(Succeed())
		})
	})

	// delivered flushes the transport and parses every value sent so far.
	delivered := func(ctx context.Context) []*fastjson.Value {
		Expect(transport.Flush(ctx)).To(Succeed())
		var out []*fastjson.Value
		for _, v := range client.Values() {
			parsed, err := fastjson.Parse(v)
			Expect(err).NotTo(HaveOccurred())
			out = append(out, parsed)
		}
		return out
	}

	It("delivers every record of a request with its request id", func(ctx SpecContext) {
		req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
		req.Header.Set(middleware.HeaderRequestID, "req-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))

		values := delivered(ctx)
		Expect(values).To(HaveLen(3))
		Expect(sink.Records()).To(HaveLen(3))

		for _, v := range values {
			Expect(string(v.GetStringBytes("request", "id"))).To(Equal("req-42"))
			Expect(string(v.GetStringBytes("traceId"))).To(Equal("req-42"))
			Expect(string(v.GetStringBytes("service", "name"))).To(Equal("orders"))
			Expect(string(v.GetStringBytes("request", "method"))).To(Equal(http.MethodGet))
		}
		Expect(string(values[1].GetStringBytes("message"))).To(Equal("loading order"))
		Expect(string(values[1].GetStringBytes("context", "order"))).To(Equal("42"))
	})

	It("marks server errors at ERROR level", func(ctx SpecContext) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		values := delivered(ctx)
		Expect(values).To(HaveLen(2))
		last := values[len(values)-1]
		Expect(string(last.GetStringBytes("level"))).To(Equal("ERROR"))
		Expect(last.GetInt("context", "statusCode")).To(Equal(http.StatusServiceUnavailable))
	})

	It("keeps concurrent requests apart", func(ctx SpecContext) {
		const requests = 25

		var wg sync.WaitGroup
		for i := range requests {
			wg.Go(func() {
				defer GinkgoRecover()
				req := httptest.NewRequest(http.MethodGet, "/orders/"+strconv.Itoa(i), nil)
				req.Header.Set(middleware.HeaderRequestID, "req-"+strconv.Itoa(i))
				handler.ServeHTTP(httptest.NewRecorder(), req)
			})
		}
		wg.Wait()

		values := delivered(ctx)
		Expect(values).To(HaveLen(requests * 3))
		for _, v := range values {
			if string(v.GetStringBytes("message")) != "loading order" {
				continue
			}
			id := string(v.GetStringBytes("request", "id"))
			Expect(id).To(Equal("req-" + string(v.GetStringBytes("context", "order"))))
		}
	})

	DescribeTable("respects the forwarder level threshold",
		func(ctx SpecContext, minLevel logging.Level, want int) {
			c := &kafka.FakeClient{}
			tr, err := kafka.New(c, kafka.Options{
				Brokers:       []string{"localhost:9092"},
				Topic:         "service-logs",
				FlushInterval: time.Hour,
				MinLevel:      minLevel,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Init(ctx)).To(Succeed())

			l := logging.MustNew(logging.WithSink(&logging.RecordingSink{}))
			l.AttachForwarder(tr)
			h := middleware.New(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

			Expect(l.Close(ctx)).To(Succeed())
			Expect(c.Values()).To(HaveLen(want))
		},
		Entry("info admits start and completion", logging.LevelInfo, 2),
		Entry("error admits only the failed completion", logging.LevelError, 1),
		Entry("critical admits nothing", logging.LevelCritical, 0),
	)
})
