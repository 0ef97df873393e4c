package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"
)

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`

	// StartParam is the start_param of the launch link, a referral code
	// when the player followed an invite.
	StartParam string `json:"-"`
}

// ParseUser reads the user field of init_data without checking the signature.
func ParseUser(initData string) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}
	return parseUser(values)
}

func parseUser(values url.Values) (*WebAppUser, error) {
	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrInvalidInitData, err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidInitData)
	}
	user.StartParam = values.Get("start_param")
	return &user, nil
}
