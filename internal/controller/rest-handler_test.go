package controller

import (
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/stretchr/testify/assert"
)

func TestCreateRoomRequestMatchesServiceLimits(t *testing.T) {
	v := validator.NewValidator()

	for _, n := range []int{64, 65} {
		hostId := strings.Repeat("h", n)
		_, restOk := v.Validate(createRoomRequest{HostId: hostId, Username: "host"})
		serviceOk := validation.Validate(hostId, room.UserIdRule...) == nil
		assert.Equal(t, serviceOk, restOk, "hostId of length %d", n)
	}

	_, ok := v.Validate(createRoomRequest{HostId: strings.Repeat("h", 65), Username: "host"})
	assert.False(t, ok)
}
