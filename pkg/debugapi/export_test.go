package debugapi

type (
	StatusResponse    = statusResponse
	AddressesResponse = addressesResponse
	AccountResponse   = accountResponse
	AccountsResponse  = accountsResponse
	ChannelResponse   = channelResponse
	ChannelsResponse  = channelsResponse
	SupplyResponse    = supplyResponse
)

var (
	ErrInvalidAddress = errInvalidAddress
	ErrNoAccount      = errNoAccount
)
