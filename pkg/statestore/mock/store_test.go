package mock_test

import (
	"testing"

	"github.com/gauss-project/powerpay/pkg/statestore/mock"
	"github.com/gauss-project/powerpay/pkg/statestore/test"
	"github.com/gauss-project/powerpay/pkg/storage"
)

func TestMockStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) storage.StateStorer {
		return mock.NewStateStore()
	})
}
