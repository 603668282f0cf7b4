//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
)

func TestInMemorySink_AppendAndList(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(context.Background(), &evalresult.Record{CaseID: "a"}))
	require.NoError(t, s.Append(context.Background(), &evalresult.Record{CaseID: "b"}))
	require.Error(t, s.Append(context.Background(), nil))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].CaseID)
}

func TestInMemorySink_ConcurrentAppends(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(context.Background(), &evalresult.Record{CaseID: "c"}))
		}()
	}
	wg.Wait()
	assert.Len(t, s.Records(), 16)
}

func TestInMemorySink_Closed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	require.Error(t, s.Append(context.Background(), &evalresult.Record{CaseID: "a"}))
}
