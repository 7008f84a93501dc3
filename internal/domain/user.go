package domain

// LoginInput is submitted to the backend login endpoint.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// RegistrationInput creates a new backend account.
type RegistrationInput struct {
	Firstname       string `json:"firstname" validate:"required" label:"First name"`
	Lastname        string `json:"lastname" validate:"required" label:"Last name"`
	Email           string `json:"email" validate:"required,email" label:"Email"`
	Password        string `json:"password" validate:"required" label:"Password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password" label:"Confirm password"`
	Gender          string `json:"gender" validate:"required" label:"Gender"`
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string `json:"token"`
}
