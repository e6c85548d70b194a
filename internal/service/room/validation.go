package room

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var RoomCodeRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[A-Z0-9]{4,16}$")),
}

var UserIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
}

var UsernameRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 32),
}

var AvatarRule = []validation.Rule{
	validation.Length(0, 512),
}

var MediaRefRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 2048),
}

var EmojiRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 16),
}

var CallIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 256),
}
