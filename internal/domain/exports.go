package domain

import (
	interfaces "courier/internal/domain/interfaces"
	types "courier/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Address                = types.Address
	DeviceID               = types.DeviceID
	PreKeyBundle           = types.PreKeyBundle
	PreKeyResponse         = types.PreKeyResponse
	SignedPreKey           = types.SignedPreKey
	OneTimePreKey          = types.OneTimePreKey
	CiphertextMessage      = types.CiphertextMessage
	EncryptedDeviceMessage = types.EncryptedDeviceMessage
	MessageBundle          = types.MessageBundle
	MismatchedDevices      = types.MismatchedDevices
	StaleDevices           = types.StaleDevices
	SessionRecord          = types.SessionRecord
	PendingPreKey          = types.PendingPreKey
	Identity               = types.Identity
	ProtocolError          = types.ProtocolError
	Credential             = types.Credential
	X25519Public           = types.X25519Public
	X25519Private          = types.X25519Private
	Ed25519Public          = types.Ed25519Public
	Ed25519Private         = types.Ed25519Private
)

// PrimaryDeviceID re-exports the primary device constant.
const PrimaryDeviceID = types.PrimaryDeviceID

// WhisperType and PreKeyType re-export the ciphertext message type constants.
const (
	WhisperType = types.WhisperType
	PreKeyType  = types.PreKeyType
)

// EncodedDevice re-exports the session record key helper.
func EncodedDevice(addr Address, id DeviceID) string { return types.EncodedDevice(addr, id) }

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	SessionStore    = interfaces.SessionStore
	IdentityStore   = interfaces.IdentityStore
	CredentialStore = interfaces.CredentialStore
	SignalTransport = interfaces.SignalTransport
	SessionCipher   = interfaces.SessionCipher
	CipherFactory   = interfaces.CipherFactory
	SessionBuilder  = interfaces.SessionBuilder
)
